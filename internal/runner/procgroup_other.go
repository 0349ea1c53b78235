//go:build !unix

package runner

import "os/exec"

// killProcessGroup is a no-op where process groups are unavailable; only the
// direct child is killed on cancel.
func killProcessGroup(cmd *exec.Cmd) {}
