//go:build !unix

package shell

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func signalGroup(cmd *exec.Cmd, sig os.Signal) {
	if sig == os.Interrupt {
		// not deliverable on this platform
		_ = cmd.Process.Kill()
		return
	}
	_ = cmd.Process.Signal(sig)
}
