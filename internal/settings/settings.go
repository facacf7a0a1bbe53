// Package settings holds the fixed, process-wide paths and constants
// presto uses to locate its working directory, log file, and per-node
// execution status files (original settings.py).
package settings

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/cpu"
)

// DirName is the name of presto's working directory, created alongside
// the pipeline YAML file.
const DirName = ".presto"

// LogFileName is the name of the log file written inside DirName.
const LogFileName = "presto.log"

// NodeExecSuffix is appended to a node's name to build the path of its
// persisted execution status file inside DirName.
const NodeExecSuffix = ".nexec"

// ANSI escapes used for progress-line rendering, per the original
// settings.py palette.
const (
	OKGreen  = "\033[92m"
	Fail     = "\033[91m"
	Endc     = "\033[0m"
	Return   = "\033[K\r"
	Bold     = "\033[1m"
	EndCBold = Endc + Bold
)

// PrestoDir returns the .presto directory path for a pipeline file that
// lives in pipelineDir.
func PrestoDir(pipelineDir string) string {
	return filepath.Join(pipelineDir, DirName)
}

// LogFile returns the log file path for a pipeline file that lives in
// pipelineDir.
func LogFile(pipelineDir string) string {
	return filepath.Join(PrestoDir(pipelineDir), LogFileName)
}

// NodeExecFile returns the status file path for the given node name.
func NodeExecFile(pipelineDir, nodeName string) string {
	return filepath.Join(PrestoDir(pipelineDir), nodeName+NodeExecSuffix)
}

// HostWorkers returns the number of logical CPUs on the host, used as
// the default --workers value when the user requests 0 (auto).
func HostWorkers(ctx context.Context) (int, error) {
	n, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("unable to determine host's number of CPU: %w", err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("host reported a non-positive CPU count: %d", n)
	}
	return n, nil
}
