// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package disruptor

import "golang.org/x/sys/unix"

// bindCPU binds the calling OS thread to core.
// The caller must hold runtime.LockOSThread.
func bindCPU(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
