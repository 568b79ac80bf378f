// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command ringbench measures ring buffer throughput.
package main

import (
	"fmt"
	"os"

	"code.hybscloud.com/disruptor/internal/cli"
	"code.hybscloud.com/disruptor/internal/logging"
)

func main() {
	err := cli.NewRootCommand().Execute()
	logging.Cleanup()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ringbench:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
