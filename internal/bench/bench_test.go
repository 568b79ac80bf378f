// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

// Runs publish plain slot data ordered by atomix sequences, which the race
// detector cannot see.

package bench

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"code.hybscloud.com/disruptor/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// runTimeout bounds a single Run so a stalled ring fails the test instead of
// hanging the package.
const runTimeout = 30 * time.Second

func runWithin(t *testing.T, cfg Config, logger logging.Logger) (*Result, error) {
	t.Helper()
	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := Run(cfg, logger)
		done <- outcome{res, err}
	}()
	select {
	case o := <-done:
		return o.res, o.err
	case <-time.After(runTimeout):
		t.Fatalf("run did not finish within %s", runTimeout)
		return nil, nil
	}
}

func TestRunTopologies(t *testing.T) {
	tests := []struct {
		mode      string
		claim     string
		producers int
		consumers int
		batch     int
	}{
		{ModePipeline, ClaimSingle, 1, 3, 1},
		{ModePipeline, ClaimMulti, 3, 2, 4},
		{ModeFanOut, ClaimSingle, 1, 4, 8},
		{ModeFanOut, ClaimPending, 4, 2, 1},
		{ModeWorkers, ClaimLowContention, 2, 3, 2},
		{ModeWorkers, ClaimMulti, 4, 4, 1},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s/%s/p%d/c%d", tt.mode, tt.claim, tt.producers, tt.consumers)
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Size = 64
			cfg.Mode = tt.mode
			cfg.Claim = tt.claim
			cfg.Producers = tt.producers
			cfg.Consumers = tt.consumers
			cfg.Batch = tt.batch
			cfg.Events = 20_001
			cfg.Pending = 4

			res, err := runWithin(t, cfg, zaptest.NewLogger(t).Sugar())
			require.NoError(t, err)
			assert.Equal(t, tt.mode, res.Mode)
			assert.Equal(t, int64(20_001), res.Events)
			assert.Equal(t, 64, res.Size)
			assert.Positive(t, res.OpsPerSec)
			assert.True(t, strings.HasPrefix(res.String(), tt.mode+"/"+tt.claim+"/yielding"))
		})
	}
}

func TestRunWaitStrategies(t *testing.T) {
	for _, wait := range []string{"blocking", "sleeping", "yielding", "busyspin"} {
		t.Run(wait, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Size = 16
			cfg.Wait = wait
			cfg.Consumers = 2
			cfg.Events = 5_000

			res, err := runWithin(t, cfg, nil)
			require.NoError(t, err)
			assert.Equal(t, wait, res.Wait)
		})
	}
}

func TestRunFewerEventsThanProducers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Claim = ClaimMulti
	cfg.Producers = 4
	cfg.Mode = ModeWorkers
	cfg.Consumers = 2
	cfg.Events = 3

	res, err := runWithin(t, cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Events)
}

func TestRunPendingLargeBatches(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Size = 16
	cfg.Claim = ClaimPending
	cfg.Producers = 3
	cfg.Mode = ModeFanOut
	cfg.Consumers = 2
	cfg.Batch = 16
	cfg.Pending = 16
	cfg.Events = 10_000

	res, err := runWithin(t, cfg, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), res.Events)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Events = 0
	_, err := Run(cfg, nil)
	assert.Error(t, err)
}
