// brandcut/transform/graph.go
package transform

import (
	"fmt"
	"strings"
)

// EndCreditKind declares what the configured end-credit asset is. An image
// is looped into a short clip; a video is used as-is.
type EndCreditKind string

const (
	EndCreditImage EndCreditKind = "image"
	EndCreditVideo EndCreditKind = "video"
)

// Layout positions the branding elements on the target canvas.
type Layout struct {
	CanvasWidth  int
	CanvasHeight int
	MainHeight   int // height of the region the trimmed video is scaled into
	PadY         int // vertical offset of that region on the canvas
	CaptionY1    int // part-number caption
	CaptionY2    int // title caption
	FontSize     int
}

// DefaultLayout scales the reference portrait layout (1080x1920, main video
// at y=608, captions at 1220/1266) to the configured canvas.
func DefaultLayout(width, height int) Layout {
	mainH := height * 1312 / 1920
	return Layout{
		CanvasWidth:  width,
		CanvasHeight: height,
		MainHeight:   mainH,
		PadY:         height - mainH,
		CaptionY1:    height * 1220 / 1920,
		CaptionY2:    height * 1266 / 1920,
		FontSize:     48,
	}
}

// Composition is the structured description of one segment's branding
// overlay. Render serializes it to the engine's filter-graph syntax; it is
// the single place where user-controlled text crosses into that syntax.
// The end-credit asset is input 1 regardless of its declared kind: looping
// an image into a clip is input-flag territory, so the graph is identical
// for both kinds and the distinction stays with the argument builder.
type Composition struct {
	Layout    Layout
	FontPath  string
	PartText  string // e.g. "Part No - 3"
	TitleText string
}

// Input order: 0 = trimmed source, 1 = end credit, 2 = banner.
func (c Composition) Render() string {
	var b strings.Builder
	l := c.Layout

	fmt.Fprintf(&b, "[2:v]scale=%d:-1,setsar=1[banner];", l.CanvasWidth)
	fmt.Fprintf(&b,
		"[0:v]scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:0:%d:color=black,setsar=1[main];",
		l.CanvasWidth, l.MainHeight, l.CanvasWidth, l.CanvasHeight, l.PadY)
	b.WriteString("[main][banner]overlay=0:0[branded];")
	fmt.Fprintf(&b,
		"[branded]drawtext=text='%s':fontfile=%s:fontsize=%d:fontcolor=white:x=(w-tw)/2:y=%d[cap1];",
		EscapeCaption(c.PartText), c.FontPath, l.FontSize, l.CaptionY1)
	fmt.Fprintf(&b,
		"[cap1]drawtext=text='%s':fontfile=%s:fontsize=%d:fontcolor=white:x=(w-tw)/2:y=%d[cap2];",
		EscapeCaption(c.TitleText), c.FontPath, l.FontSize, l.CaptionY2)
	fmt.Fprintf(&b, "[1:v]scale=%d:%d,setsar=1[credit];", l.CanvasWidth, l.CanvasHeight)
	b.WriteString("[cap2][credit]concat=n=2:v=1:a=0[outv];")
	b.WriteString("[0:a]aresample=async=1[outa]")

	return b.String()
}

var captionEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`:`, `\:`,
	`%`, `\%`,
	`;`, `\;`,
	`,`, `\,`,
)

// EscapeCaption neutralizes characters that are meaningful to the filter
// graph's text syntax. Mandatory for any caller-controlled string embedded
// in a drawtext expression.
func EscapeCaption(s string) string {
	return captionEscaper.Replace(s)
}
