package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"tether/internal/config"
)

// Requirement defines an external dependency Tether relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// CheckSystemDeps evaluates external dependencies for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list. rclone is optional because any FUSE client can
// serve the mount; tether only reads the mounted tree.
func CheckSystemDeps(cfg *config.Config) []Status {
	requirements := []Requirement{
		{
			Name:        "rclone",
			Command:     "rclone",
			Description: "Typical provider of the remote mount",
			Optional:    true,
		},
	}
	results := CheckBinaries(requirements)
	results = append(results,
		CheckDirectoryAccess("Info directory", cfg.Paths.InfoDir, false),
		CheckDirectoryAccess("Mount directory", cfg.Paths.MountDir, false),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir, true),
	)
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable,
// optionally also writable.
func CheckDirectoryAccess(name, path string, needWrite bool) Status {
	status := Status{Name: name, Command: path}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			status.Detail = "does not exist"
			return status
		}
		status.Detail = fmt.Sprintf("stat: %v", err)
		return status
	}
	if !info.IsDir() {
		status.Detail = "is not a directory"
		return status
	}
	mode := uint32(unix.R_OK | unix.X_OK)
	if needWrite {
		mode |= unix.W_OK
	}
	if err := unix.Access(path, mode); err != nil {
		status.Detail = fmt.Sprintf("insufficient permissions: %v", err)
		return status
	}
	status.Available = true
	return status
}
