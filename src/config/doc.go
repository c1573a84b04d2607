// Package config defines the configuration for a duststorm node.
//
// Options come from command line flags and, optionally, from a config file in
// the data directory, Config.DataDir:
//
//  duststorm.toml // or duststorm.yaml, duststorm.json
//
// When persistence is enabled with Config.Store, each node keeps its values in
// its own Badger database under Config.DatabaseDir, in a sub-directory named
// after the node.
package config
