// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"code.hybscloud.com/disruptor/internal/bench"
	"code.hybscloud.com/disruptor/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunText(t *testing.T) {
	out, err := execute(t, "run", "--size", "64", "--events", "10000", "--consumers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "pipeline/single/yielding size=64 producers=1 consumers=2 events=10000")
	assert.Contains(t, out, "ops/s")
}

func TestRunJSON(t *testing.T) {
	out, err := execute(t, "run", "--format", "json",
		"--size", "32", "--events", "5000", "--producers", "3", "--claim", "multi",
		"--mode", "workers", "--consumers", "3", "--batch", "4", "--wait", "sleeping")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   bench.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.Data.RunID, 36)
	assert.Equal(t, "workers", resp.Data.Mode)
	assert.Equal(t, "multi", resp.Data.Claim)
	assert.Equal(t, 3, resp.Data.Producers)
	assert.Equal(t, int64(5000), resp.Data.Events)
	assert.Positive(t, resp.Data.OpsPerSec)
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
size: 128
producers: 2
consumers: 3
mode: fanout
claim: pending
pending: 8
wait: blocking
events: 8000
`), 0o644))
	logFile := filepath.Join(dir, "ringbench.log")
	prev := logging.GetDefaultLogger()

	out, err := execute(t, "run", "--config", path, "--events", "4000", "--log-file", logFile, "-v")
	require.NoError(t, err)
	assert.True(t, prev == logging.GetDefaultLogger(), "the previous default logger should be restored")
	assert.Contains(t, out, "fanout/pending/blocking size=128 producers=2 consumers=3 events=4000")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "bench: starting")
	assert.Contains(t, string(data), "bench: finished")
}
