package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/duststorm/src/common"
	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// databases, one sub-directory per node.
	DefaultBadgerFile = "badger_db"

	// DefaultConfigName is the name, without extension, of the optional config
	// file in the data directory.
	DefaultConfigName = "duststorm"
)

// Workloads.
const (
	WorkloadBroadcast = "broadcast"
	WorkloadEcho      = "echo"
	WorkloadUniqueIDs = "unique-ids"
)

// Default configuration values.
const (
	DefaultLogLevel      = "info"
	DefaultLogFile       = ""
	DefaultRetryInterval = 200 * time.Millisecond
	DefaultJitter        = false
	DefaultWorkload      = WorkloadBroadcast
	DefaultStore         = false
	DefaultServiceAddr   = ""
)

// Config contains all the configuration properties of a duststorm node.
type Config struct {
	// DataDir is the top-level directory containing the config file and the
	// databases.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry. Logs never go to
	// stdout, which carries the protocol.
	LogFile string `mapstructure:"log-file"`

	// RetryInterval is the period at which unacknowledged gossip is re-sent.
	RetryInterval time.Duration `mapstructure:"retry"`

	// Jitter spreads every retry period over [RetryInterval, 2*RetryInterval).
	Jitter bool `mapstructure:"jitter"`

	// Workload selects the handler: broadcast, echo or unique-ids.
	Workload string `mapstructure:"workload"`

	// Store activates persistent storage of broadcast values.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// ServiceAddr is the address:port of the optional HTTP service. Empty
	// disables it.
	ServiceAddr string `mapstructure:"service-listen"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:       DefaultDataDir(),
		LogLevel:      DefaultLogLevel,
		LogFile:       DefaultLogFile,
		RetryInterval: DefaultRetryInterval,
		Jitter:        DefaultJitter,
		Workload:      DefaultWorkload,
		Store:         DefaultStore,
		DatabaseDir:   DefaultDatabaseDir(),
		ServiceAddr:   DefaultServiceAddr,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.RetryInterval = 10 * time.Millisecond
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// NodeDatabaseDir returns the directory of the Badger database of node id.
func (c *Config) NodeDatabaseDir(id string) string {
	return filepath.Join(c.DatabaseDir, id)
}

// NodeConfig returns the configuration of the node runtime.
func (c *Config) NodeConfig() *node.Config {
	return node.NewConfig(c.RetryInterval, c.Jitter, c.Logger())
}

// Logger returns a formatted logrus Entry, with prefix set to "duststorm".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Out = os.Stderr
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				fileHookPaths(c.LogFile),
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "duststorm")
}

// fileHookPaths routes every level to the same file.
func fileHookPaths(path string) lfshook.PathMap {
	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = path
	}
	return pathMap
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level duststorm
// config based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".Duststorm")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "Duststorm")
		} else {
			return filepath.Join(home, ".duststorm")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
