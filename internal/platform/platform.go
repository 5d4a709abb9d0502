package platform

import (
	"fmt"
	"runtime"

	"github.com/Zuo-Peng/zo-export/internal/workdir"
)

type OS int

const (
	Unknown OS = iota
	Windows
	Mac
	Linux
)

func (o OS) String() string {
	switch o {
	case Windows:
		return "windows"
	case Mac:
		return "mac"
	case Linux:
		return "linux"
	default:
		return "unknown"
	}
}

// Supported reports whether the companion importer ships a shim for o.
func (o OS) Supported() bool {
	return o == Windows || o == Mac
}

// Classify maps a GOOS value onto the closed OS set.
func Classify(goos string) OS {
	switch goos {
	case "windows":
		return Windows
	case "darwin":
		return Mac
	case "linux":
		return Linux
	default:
		return Unknown
	}
}

func Current() OS {
	return Classify(runtime.GOOS)
}

// Stage is one of the two phases of the handshake.
type Stage string

const (
	StageSelect Stage = "select"
	StageImport Stage = "import"
)

// Args is the argument list passed to the shim. Order matters to the
// companion's CLI.
func (s Stage) Args() ([]string, error) {
	switch s {
	case StageSelect:
		return []string{"select", "-f", workdir.IndexName, "-o", workdir.SelectionName}, nil
	case StageImport:
		return []string{"import", "-f", workdir.ExportName, "-i", workdir.IndexName}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q", string(s))
	}
}
