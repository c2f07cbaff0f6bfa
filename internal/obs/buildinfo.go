package obs

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	GoVersion string `json:"goVersion"`
}

var (
	buildMu   sync.RWMutex
	build     = BuildInfo{Version: "dev", Commit: "unknown", GoVersion: runtime.Version()}
	buildOnce sync.Once

	buildGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gatehouse_build_info",
			Help: "Gatehouse build information.",
		},
		[]string{"version", "commit", "goversion"},
	)
)

// InitBuildInfo records the binary version and exports gatehouse_build_info.
// An empty or "dev" commit falls back to the VCS revision embedded by the Go toolchain.
func InitBuildInfo(version, commit string) BuildInfo {
	if commit == "" || commit == "dev" {
		commit = vcsRevision()
	}
	info := BuildInfo{Version: version, Commit: commit, GoVersion: runtime.Version()}
	if info.Version == "" {
		info.Version = "dev"
	}

	buildMu.Lock()
	build = info
	buildMu.Unlock()

	buildOnce.Do(func() { prometheus.MustRegister(buildGauge) })
	buildGauge.Reset()
	buildGauge.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)
	return info
}

// Build returns the values recorded by InitBuildInfo.
func Build() BuildInfo {
	buildMu.RLock()
	defer buildMu.RUnlock()
	return build
}

func vcsRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return "unknown"
}
