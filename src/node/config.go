package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/duststorm/src/common"
	"github.com/sirupsen/logrus"
)

// Config contains the parameters of the node runtime.
type Config struct {
	// RetryInterval is the period of the handler's retry timer.
	RetryInterval time.Duration `mapstructure:"retry"`

	// JitterRetry spreads each retry period over [RetryInterval,
	// 2*RetryInterval).
	JitterRetry bool `mapstructure:"jitter"`

	Logger *logrus.Entry
}

// NewConfig ...
func NewConfig(retry time.Duration, jitter bool, logger *logrus.Entry) *Config {
	return &Config{
		RetryInterval: retry,
		JitterRetry:   jitter,
		Logger:        logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		RetryInterval: 200 * time.Millisecond,
		Logger:        logrus.NewEntry(logger),
	}
}

// TestConfig returns a config with a short retry period and a logger that
// writes through t.Log.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.RetryInterval = 10 * time.Millisecond
	config.Logger = common.NewTestEntry(t, common.TestLogLevel)
	return config
}
