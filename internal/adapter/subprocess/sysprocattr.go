//go:build !windows

package subprocess

import "syscall"

// sysProcAttr places the child in its own process group so a cancellation
// signal delivered to -pid reaches any grandchildren the CLI spawns too.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
