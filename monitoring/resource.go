package monitoring

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// SampleCPU measures the CPU usage of the current process over interval, in
// percent of one core.
func SampleCPU(interval time.Duration) (float64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	return p.Percent(interval)
}
