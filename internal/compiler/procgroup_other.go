//go:build !unix

package compiler

import "os/exec"

// killGroupOnCancel keeps exec's default behavior of killing the process.
func killGroupOnCancel(cmd *exec.Cmd) {}
