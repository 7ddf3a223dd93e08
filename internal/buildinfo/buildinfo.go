package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Ces variables sont typiquement injectées à la compilation via -ldflags.
// Exemple :
//
//	-X github.com/Guilhem-Bonnet/hidaya/internal/buildinfo.Version=v0.0.0
//	-X github.com/Guilhem-Bonnet/hidaya/internal/buildinfo.Commit=abcdef
//	-X github.com/Guilhem-Bonnet/hidaya/internal/buildinfo.Date=2026-01-18
//
// Sans ldflags, Commit et Date viennent des métadonnées VCS du binaire si elles existent.
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion"`
}

func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date, GoVersion: runtime.Version()}
	if info.Commit != "" && info.Date != "" {
		return info
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	return info
}
