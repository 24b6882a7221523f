// brandcut/planner/planner.go
package planner

import "fmt"

// Segment is one time-bounded slice of the source. Index is 1-based.
type Segment struct {
	Index      int     `json:"index"`
	Start      float64 `json:"startSeconds"`
	Span       float64 `json:"spanSeconds"`
	OutputName string  `json:"outputName"`
}

// Plan computes the set of segments covering [0, duration) with the given
// segment length and overlap, both in seconds. Consecutive starts advance
// by segmentDuration-overlap, the final span is clipped so start+span never
// exceeds duration, and a clipped span of zero is dropped.
func Plan(duration, segmentDuration, overlap float64, title string) ([]Segment, error) {
	if segmentDuration <= 0 {
		return nil, fmt.Errorf("segment duration must be positive, got %v", segmentDuration)
	}
	if overlap < 0 || overlap >= segmentDuration {
		return nil, fmt.Errorf("overlap must be in [0, %v), got %v", segmentDuration, overlap)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("source duration must be positive, got %v", duration)
	}

	step := segmentDuration - overlap

	var plan []Segment
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= duration {
			break
		}
		span := segmentDuration
		if remaining := duration - start; remaining < span {
			span = remaining
		}
		if span <= 0 {
			continue
		}
		idx := len(plan) + 1
		plan = append(plan, Segment{
			Index:      idx,
			Start:      start,
			Span:       span,
			OutputName: fmt.Sprintf("%s_part_%03d.mp4", title, idx),
		})
	}
	return plan, nil
}
