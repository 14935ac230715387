//go:build unix

package compiler

import (
	"os/exec"
	"syscall"
)

// killGroupOnCancel starts the command in its own process group and makes
// context cancellation SIGKILL the whole group, so helpers spawned by the
// compiler die with it.
func killGroupOnCancel(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
