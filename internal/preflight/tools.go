package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ToolStatus reports the availability of one external carving tool.
type ToolStatus struct {
	Name      string
	Command   string
	Optional  bool
	Available bool
	Detail    string
}

// CheckCarvingTools reports on the engine binary and its companion tooling.
// The status command renders these alongside the directory and reachability
// checks.
func CheckCarvingTools(engineCommand string) []ToolStatus {
	return []ToolStatus{
		checkEngineBinary(engineCommand),
		checkFidentify(engineCommand),
	}
}

func checkEngineBinary(command string) ToolStatus {
	status := ToolStatus{Name: "PhotoRec", Command: strings.TrimSpace(command)}
	if status.Command == "" {
		status.Detail = "engine command not configured"
		return status
	}
	path, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	status.Available = true
	status.Command = path
	return status
}

// checkFidentify locates the fidentify helper that ships alongside the
// carving engine. The TestDisk suite installs both binaries into the same
// directory, so the sibling of the resolved engine binary is preferred over
// whatever PATH resolution would find.
func checkFidentify(engineCommand string) ToolStatus {
	status := ToolStatus{
		Name:     "fidentify",
		Command:  "fidentify",
		Optional: true,
	}

	if candidate := fidentifySidecarCandidate(engineCommand); candidate != "" {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() && isExecutable(info) {
			status.Available = true
			status.Command = candidate
			return status
		}
	}

	if path, err := exec.LookPath(status.Command); err == nil {
		status.Available = true
		status.Command = path
		return status
	}

	status.Detail = fmt.Sprintf("binary %q not found", status.Command)
	return status
}

func fidentifySidecarCandidate(engineCommand string) string {
	cmd := strings.TrimSpace(engineCommand)
	if cmd == "" {
		return ""
	}
	resolved := cmd
	if !filepath.IsAbs(resolved) {
		path, err := exec.LookPath(resolved)
		if err != nil {
			return ""
		}
		resolved = path
	}
	name := "fidentify"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(resolved), name)
}

func isExecutable(info fs.FileInfo) bool {
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
