package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/duststorm/src/config"
	"github.com/mosaicnetworks/duststorm/src/gossip"
	"github.com/mosaicnetworks/duststorm/src/net"
	"github.com/mosaicnetworks/duststorm/src/node"
	"github.com/mosaicnetworks/duststorm/src/service"
	"github.com/mosaicnetworks/duststorm/src/store"
	"github.com/mosaicnetworks/duststorm/src/telemetry"
	"github.com/mosaicnetworks/duststorm/src/version"
	"github.com/mosaicnetworks/duststorm/src/workload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a duststorm node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node on stdin/stdout",
		PreRunE: loadConfig,
		RunE:    runDuststorm,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runDuststorm(cmd *cobra.Command, args []string) error {
	logger := _config.Logger()

	telemetry.SetBuildInfo(version.Version)

	factory, closeStore, err := newHandlerFactory(_config)
	if err != nil {
		logger.WithError(err).Error("Cannot build handler")
		return err
	}
	defer closeStore()

	trans := net.NewStdioTransport(logger.WithField("prefix", "net"))

	n := node.NewNode(_config.NodeConfig(), trans, factory)

	if _config.ServiceAddr != "" {
		svc := service.NewService(_config.ServiceAddr, n, logger.WithField("prefix", "service"))
		go svc.Serve()
		defer svc.Close()
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	go func() {
		if _, ok := <-signalCh; ok {
			logger.Info("Received an interrupt, stopping")
			n.Shutdown()
		}
	}()

	if err := n.Run(); err != nil {
		logger.WithError(err).Error("Node stopped")
		return err
	}

	logger.Debug("Input closed, exiting")

	return nil
}

// newHandlerFactory selects the handler of the configured workload. The
// returned function closes the store opened by the factory, if any.
func newHandlerFactory(c *config.Config) (node.HandlerFactory, func(), error) {
	logger := c.Logger()

	switch c.Workload {
	case config.WorkloadBroadcast:
		var opened store.Store

		newStore := func(self string) (store.Store, error) {
			if !c.Store {
				opened = store.NewInmemStore()
				return opened, nil
			}

			dir := c.NodeDatabaseDir(self)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}

			logger.WithField("path", dir).Debug("Opening badger store")

			s, err := store.NewBadgerStore(dir, logger)
			if err != nil {
				return nil, err
			}
			opened = s
			return s, nil
		}

		closeStore := func() {
			if opened == nil {
				return
			}
			if err := opened.Close(); err != nil {
				logger.WithError(err).Error("Closing store")
			}
		}

		return gossip.NewHandlerFactory(newStore, logger), closeStore, nil
	case config.WorkloadEcho:
		return workload.NewEchoFactory(), func() {}, nil
	case config.WorkloadUniqueIDs:
		return workload.NewUniqueIDsFactory(logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown workload %q", c.Workload)
	}
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.LogFile, "Also write logs to this file")

	// Workload
	cmd.Flags().StringP("workload", "w", _config.Workload, "broadcast, echo, unique-ids")
	cmd.Flags().Duration("retry", _config.RetryInterval, "Time between gossip retries")
	cmd.Flags().Bool("jitter", _config.Jitter, "Randomise the retry period between 1x and 2x retry")

	// Service
	cmd.Flags().StringP("service-listen", "s", _config.ServiceAddr, "Listen IP:Port for HTTP service (disabled when empty)")

	// Store
	cmd.Flags().Bool("store", _config.Store, "Persist broadcast values in badgerDB")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	logFields := logrus.Fields{
		"DataDir":       _config.DataDir,
		"LogLevel":      _config.LogLevel,
		"LogFile":       _config.LogFile,
		"Workload":      _config.Workload,
		"RetryInterval": _config.RetryInterval,
		"Jitter":        _config.Jitter,
		"ServiceAddr":   _config.ServiceAddr,
		"Store":         _config.Store,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/duststorm.toml (.json, .yaml also work)
	viper.SetConfigName(config.DefaultConfigName) // name of config file (without extension)
	viper.AddConfigPath(_config.DataDir)          // search root directory

	// If a config file is found, read it in. The logger is only built after
	// the second unmarshal, which may change the log settings.
	var found string
	if err := viper.ReadInConfig(); err == nil {
		found = fmt.Sprintf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		found = fmt.Sprintf("No config file found in: %s", _config.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	_config.Logger().Debug(found)

	return nil
}
