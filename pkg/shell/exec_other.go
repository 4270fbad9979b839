//go:build !unix

package shell

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

func exitStatus(err *exec.ExitError) int {
	if code := err.ExitCode(); code >= 0 {
		return code
	}
	return 1
}
