// Package open shows an exported document in a PDF viewer.
package open

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// ViewerEnv names the environment variable that selects the PDF viewer.
const ViewerEnv = "ZOEXPORT_PDF_VIEWER"

// PDF opens path, jumping to page when the viewer supports it. page is
// 1-based; 0 opens at the start.
func PDF(path string, page int) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s", path)
	}

	name, args := viewerCommand(runtime.GOOS, os.Getenv(ViewerEnv), path, page)
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func viewerCommand(goos, viewer, path string, page int) (string, []string) {
	if viewer == "" {
		switch goos {
		case "darwin":
			return "open", []string{path}
		case "windows":
			return "cmd", []string{"/c", "start", "", path}
		default:
			return "xdg-open", []string{path}
		}
	}

	if page <= 0 {
		return viewer, []string{path}
	}
	n := strconv.Itoa(page)
	lower := strings.ToLower(viewer)

	switch {
	case strings.Contains(lower, "zathura"):
		return viewer, []string{"--page=" + n, path}
	case strings.Contains(lower, "okular"):
		return viewer, []string{"-p", n, path}
	case strings.Contains(lower, "evince"):
		return viewer, []string{"--page-index=" + n, path}
	case strings.Contains(lower, "sumatra"):
		return viewer, []string{"-page", n, path}
	default:
		return viewer, []string{path}
	}
}
