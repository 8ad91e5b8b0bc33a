package parallel

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/viterin/vek/vek32"
)

// RuntimeInfo describes the execution environment of the engine
type RuntimeInfo struct {
	GoVersion   string   `json:"go_version"`
	OS          string   `json:"os"`
	Arch        string   `json:"arch"`
	NumCPU      int      `json:"num_cpu"`
	GOMAXPROCS  int      `json:"gomaxprocs"`
	Workers     int      `json:"workers"`
	Accelerated bool     `json:"simd_accelerated"`
	CPUFeatures []string `json:"cpu_features"`
}

// Info reports the runtime configuration for a pool
func Info(p *Pool) RuntimeInfo {
	simd := vek32.Info()
	return RuntimeInfo{
		GoVersion:   runtime.Version(),
		OS:          runtime.GOOS,
		Arch:        runtime.GOARCH,
		NumCPU:      runtime.NumCPU(),
		GOMAXPROCS:  runtime.GOMAXPROCS(0),
		Workers:     p.Workers(),
		Accelerated: simd.Acceleration,
		CPUFeatures: simd.CPUFeatures,
	}
}

// String renders the configuration as indented key/value lines
func (r RuntimeInfo) String() string {
	var sb strings.Builder
	sb.WriteString("goedm runtime configuration:\n")
	fmt.Fprintf(&sb, "  Go version:        %s\n", r.GoVersion)
	fmt.Fprintf(&sb, "  Platform:          %s/%s\n", r.OS, r.Arch)
	fmt.Fprintf(&sb, "  CPUs:              %d\n", r.NumCPU)
	fmt.Fprintf(&sb, "  GOMAXPROCS:        %d\n", r.GOMAXPROCS)
	fmt.Fprintf(&sb, "  Kernel workers:    %d\n", r.Workers)
	fmt.Fprintf(&sb, "  SIMD acceleration: %t\n", r.Accelerated)
	features := "none"
	if len(r.CPUFeatures) > 0 {
		features = strings.Join(r.CPUFeatures, ",")
	}
	fmt.Fprintf(&sb, "  CPU features:      %s\n", features)
	return sb.String()
}
