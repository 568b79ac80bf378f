// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package bench

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"code.hybscloud.com/disruptor"
	"gopkg.in/yaml.v3"
)

// Consumer topologies.
const (
	ModePipeline = "pipeline" // each consumer waits for the one before it
	ModeFanOut   = "fanout"   // every consumer sees every event independently
	ModeWorkers  = "workers"  // each event goes to exactly one consumer
)

// Claim strategy names.
const (
	ClaimSingle        = "single"
	ClaimMulti         = "multi"
	ClaimPending       = "pending"
	ClaimLowContention = "lowcontention"
)

// ValidModes and ValidClaims list the accepted values, in display order.
var (
	ValidModes  = []string{ModePipeline, ModeFanOut, ModeWorkers}
	ValidClaims = []string{ClaimSingle, ClaimMulti, ClaimPending, ClaimLowContention}
)

// Config describes one benchmark run.
type Config struct {
	// Size is the ring size. Rounded up to a power of 2.
	Size int `yaml:"size"`

	// Producers is the number of publishing goroutines.
	Producers int `yaml:"producers"`

	// Consumers is the number of processors, arranged by Mode.
	Consumers int `yaml:"consumers"`

	Mode  string `yaml:"mode"`
	Claim string `yaml:"claim"`

	// Wait is a name accepted by disruptor.ParseWaitStrategy.
	Wait string `yaml:"wait"`

	// Events is the total number of events across all producers.
	Events int64 `yaml:"events"`

	// Batch is the number of sequences a producer claims at once.
	Batch int `yaml:"batch"`

	// Pending sizes the pending-publication ring of the "pending" claim.
	// Zero uses the ring size.
	Pending int `yaml:"pending,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Size:      1024,
		Producers: 1,
		Consumers: 1,
		Mode:      ModePipeline,
		Claim:     ClaimSingle,
		Wait:      "yielding",
		Events:    1_000_000,
		Batch:     1,
	}
}

// LoadConfig reads a YAML config file over DefaultConfig.
// Unknown fields are rejected so typos don't pass silently.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the config describes a runnable benchmark.
func (c *Config) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("size must be >= 1, got %d", c.Size)
	}
	if c.Producers < 1 {
		return fmt.Errorf("producers must be >= 1, got %d", c.Producers)
	}
	if c.Consumers < 1 {
		return fmt.Errorf("consumers must be >= 1, got %d", c.Consumers)
	}
	if c.Events < 1 {
		return fmt.Errorf("events must be >= 1, got %d", c.Events)
	}
	if c.Batch < 1 || c.Batch > c.Size {
		return fmt.Errorf("batch must be in [1, size], got %d", c.Batch)
	}
	if c.Pending < 0 {
		return fmt.Errorf("pending must be >= 0, got %d", c.Pending)
	}
	if c.Claim == ClaimPending && c.Pending > 0 && c.Pending < c.Batch {
		return fmt.Errorf("pending must be 0 or >= batch (%d), got %d", c.Batch, c.Pending)
	}
	if !slices.Contains(ValidModes, c.Mode) {
		return fmt.Errorf("invalid mode %q: must be one of %v", c.Mode, ValidModes)
	}
	if !slices.Contains(ValidClaims, c.Claim) {
		return fmt.Errorf("invalid claim %q: must be one of %v", c.Claim, ValidClaims)
	}
	if c.Claim == ClaimSingle && c.Producers > 1 {
		return fmt.Errorf("claim %q allows one producer, got %d", ClaimSingle, c.Producers)
	}
	if _, err := disruptor.ParseWaitStrategy(c.Wait); err != nil {
		return err
	}
	return nil
}

// Builder returns the ring builder the config selects.
func (c *Config) Builder() (*disruptor.Builder, error) {
	wait, err := disruptor.ParseWaitStrategy(c.Wait)
	if err != nil {
		return nil, err
	}

	b := disruptor.New(c.Size).WaitStrategy(wait)
	switch c.Claim {
	case ClaimSingle:
		b.SingleProducer()
	case ClaimLowContention:
		b.LowContention()
	case ClaimPending:
		pending := c.Pending
		if pending == 0 {
			pending = b.Size()
		}
		b.PendingBuffer(pending)
	}
	return b, nil
}
