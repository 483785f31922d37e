package dirac

import (
	"os/exec"

	"github.com/diracstore/diracstore/pkg/errors"
)

// DIRAC command-line tool names.
const (
	// EnvWrapper activates the grid environment before running a tool.
	EnvWrapper = "lb-dirac"

	ToolMetadata      = "dirac-dms-lfn-metadata"
	ToolGetFile       = "dirac-dms-get-file"
	ToolAddFile       = "dirac-dms-add-file"
	ToolListDirectory = "dirac-dms-list-directory"
)

// Toolchain describes which family of DIRAC tools is available on the
// execution path. It is detected once and injected into every client
// instead of being probed per call.
type Toolchain struct {
	// Wrapper is prepended to every command line when the tools are only
	// reachable through an environment-activation program. Empty when the
	// base tools are directly on PATH.
	Wrapper string
}

// LookPathFunc resolves an executable name to a path. exec.LookPath in
// production; injectable for tests.
type LookPathFunc func(name string) (string, error)

// DetectToolchain probes the execution path for a usable tool family.
func DetectToolchain() (Toolchain, error) {
	return DetectToolchainWith(exec.LookPath)
}

// DetectToolchainWith is DetectToolchain with an injectable path resolver.
func DetectToolchainWith(lookPath LookPathFunc) (Toolchain, error) {
	if _, err := lookPath(EnvWrapper); err == nil {
		return Toolchain{Wrapper: EnvWrapper}, nil
	}
	if _, err := lookPath(ToolMetadata); err == nil {
		return Toolchain{}, nil
	}
	return Toolchain{}, errors.Newf(errors.ErrCodeToolchainMissing,
		"neither %s nor any dirac commands were found on the execution path", EnvWrapper)
}

// CommandLine builds the full argv for a tool invocation, prepending the
// environment wrapper when one is configured.
func (t Toolchain) CommandLine(tool string, args []string) (string, []string) {
	if t.Wrapper == "" {
		return tool, args
	}
	return t.Wrapper, append([]string{tool}, args...)
}
