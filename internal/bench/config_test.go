// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bench

import (
	"os"
	"path/filepath"
	"testing"

	"code.hybscloud.com/disruptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ModePipeline, cfg.Mode)
	assert.Equal(t, ClaimSingle, cfg.Claim)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
size: 512
producers: 4
consumers: 3
mode: workers
claim: lowcontention
wait: busy-spin
events: 10000
batch: 8
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.Size)
	assert.Equal(t, 4, cfg.Producers)
	assert.Equal(t, 3, cfg.Consumers)
	assert.Equal(t, ModeWorkers, cfg.Mode)
	assert.Equal(t, ClaimLowContention, cfg.Claim)
	assert.Equal(t, "busy-spin", cfg.Wait)
	assert.Equal(t, int64(10000), cfg.Events)
	assert.Equal(t, 8, cfg.Batch)
}

func TestLoadConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "events: 42\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	want := DefaultConfig()
	want.Events = 42
	assert.Equal(t, want, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "producer: 2\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "size: [1, 2\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "mode: ring\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
		assert.Contains(t, err.Error(), `invalid mode "ring"`)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"size", func(c *Config) { c.Size = 0 }, "size must be >= 1"},
		{"producers", func(c *Config) { c.Producers = 0 }, "producers must be >= 1"},
		{"consumers", func(c *Config) { c.Consumers = -1 }, "consumers must be >= 1"},
		{"events", func(c *Config) { c.Events = 0 }, "events must be >= 1"},
		{"batch zero", func(c *Config) { c.Batch = 0 }, "batch must be in [1, size]"},
		{"batch over size", func(c *Config) { c.Size, c.Batch = 8, 9 }, "batch must be in [1, size]"},
		{"pending", func(c *Config) { c.Claim, c.Pending = ClaimPending, -1 }, "pending must be >= 0"},
		{"pending below batch", func(c *Config) { c.Claim, c.Batch, c.Pending = ClaimPending, 8, 4 }, "pending must be 0 or >= batch"},
		{"mode", func(c *Config) { c.Mode = "star" }, "invalid mode"},
		{"claim", func(c *Config) { c.Claim = "greedy" }, "invalid claim"},
		{"single with producers", func(c *Config) { c.Producers = 2 }, "allows one producer"},
		{"wait", func(c *Config) { c.Wait = "phased" }, "unknown wait strategy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidatePendingCoversBatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Claim = ClaimPending
	cfg.Batch = 8
	for _, pending := range []int{0, 8, 16} {
		cfg.Pending = pending
		assert.NoError(t, cfg.Validate(), "pending=%d", pending)
	}

	// Only the pending claim reads Pending.
	cfg.Claim = ClaimMulti
	cfg.Pending = 4
	assert.NoError(t, cfg.Validate())
}

func TestBuilder(t *testing.T) {
	tests := []struct {
		claim string
		want  any
	}{
		{ClaimSingle, &disruptor.SingleProducerClaimStrategy{}},
		{ClaimMulti, &disruptor.MultiProducerClaimStrategy{}},
		{ClaimPending, &disruptor.MultiProducerClaimStrategy{}},
		{ClaimLowContention, &disruptor.MultiProducerLowContentionClaimStrategy{}},
	}

	for _, tt := range tests {
		t.Run(tt.claim, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Claim = tt.claim
			cfg.Size = 100

			b, err := cfg.Builder()
			require.NoError(t, err)
			assert.Equal(t, 128, b.Size())
			assert.IsType(t, tt.want, b.ClaimStrategy())
		})
	}

	cfg := DefaultConfig()
	cfg.Wait = "nope"
	_, err := cfg.Builder()
	assert.Error(t, err)
}
