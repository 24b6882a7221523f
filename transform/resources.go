// brandcut/transform/resources.go
package transform

import (
	"fmt"
	"log"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// CheckResources verifies the host has enough headroom to run the engine at
// all. It runs once per request, before the segment loop; a failure here is
// treated as the engine being unavailable, not as a per-segment failure.
func (t *Transformer) CheckResources(workDir string) error {
	if t.cfg.ThrottleCPU > 0 {
		p, err := cpu.Percent(time.Second, false)
		if err != nil {
			log.Printf("Warning: could not get CPU usage: %v", err)
		} else if len(p) > 0 && p[0] > (100.0-t.cfg.ThrottleCPU) {
			return fmt.Errorf("not enough idle CPU. Current usage: %.2f%%, idle threshold: %.2f%%", p[0], t.cfg.ThrottleCPU)
		}
	}

	if t.cfg.ThrottleFreeMem > 0 {
		vm, err := mem.VirtualMemory()
		if err != nil {
			log.Printf("Warning: could not get memory usage: %v", err)
		} else if vm.Available < uint64(t.cfg.ThrottleFreeMem) {
			return fmt.Errorf("not enough free memory. Available: %d, required: %d", vm.Available, t.cfg.ThrottleFreeMem)
		}
	}

	if t.cfg.ThrottleFreeDisk > 0 {
		d, err := disk.Usage(workDir)
		if err != nil {
			log.Printf("Warning: could not get disk usage for %s: %v", workDir, err)
		} else if d.Free < uint64(t.cfg.ThrottleFreeDisk) {
			return fmt.Errorf("not enough free disk space. Available: %d, required: %d", d.Free, t.cfg.ThrottleFreeDisk)
		}
	}
	return nil
}
