package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// Set by the linker: -ldflags "-X .../internal/version.logchainVersion=v1.0"
var logchainVersion = ""

type VersionInformation struct {
	Version         string
	RuntimeGOOS     string
	RuntimeGOARCH   string
	RuntimeCompiler string
	RuntimeGo       string
}

func NewVersionInformation() *VersionInformation {
	v := &VersionInformation{
		Version:         logchainVersion,
		RuntimeGOOS:     runtime.GOOS,
		RuntimeGOARCH:   runtime.GOARCH,
		RuntimeCompiler: runtime.Compiler,
		RuntimeGo:       runtime.Version(),
	}
	if v.Version == "" {
		v.Version = "(devel)"
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
			v.Version = info.Main.Version
		}
	}
	return v
}

func (self *VersionInformation) String() string {
	return fmt.Sprintf("logchain version=%s go=%s GOOS=%s GOARCH=%s Compiler=%s",
		self.Version, self.RuntimeGo, self.RuntimeGOOS, self.RuntimeGOARCH,
		self.RuntimeCompiler)
}

var prometheusMetric = prometheus.NewUntypedFunc(
	prometheus.UntypedOpts{
		Namespace: "logchain",
		Subsystem: "version",
		Name:      "info",
		Help:      "logchain version and build information",
		ConstLabels: func() prometheus.Labels {
			v := NewVersionInformation()
			return prometheus.Labels{
				"version":          v.Version,
				"runtime_go":       v.RuntimeGo,
				"runtime_goos":     v.RuntimeGOOS,
				"runtime_goarch":   v.RuntimeGOARCH,
				"runtime_compiler": v.RuntimeCompiler,
			}
		}(),
	},
	func() float64 { return 1 },
)

func PrometheusRegister(r prometheus.Registerer) {
	r.MustRegister(prometheusMetric)
}
