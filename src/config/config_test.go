package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestDefaultConfig(t *testing.T) {
	c := NewDefaultConfig()

	if c.Workload != WorkloadBroadcast {
		t.Fatalf("default workload should be broadcast, not %s", c.Workload)
	}
	if c.RetryInterval != 200*time.Millisecond {
		t.Fatalf("default retry should be 200ms, not %v", c.RetryInterval)
	}
	if c.Store || c.ServiceAddr != "" || c.LogFile != "" {
		t.Fatalf("persistence, service and log file should be off by default")
	}

	nc := c.NodeConfig()
	if nc.RetryInterval != c.RetryInterval || nc.JitterRetry != c.Jitter || nc.Logger == nil {
		t.Fatalf("node config does not match: %#v", nc)
	}
}

func TestSetDataDir(t *testing.T) {
	c := NewDefaultConfig()
	c.SetDataDir("/tmp/ds")

	if c.DatabaseDir != filepath.Join("/tmp/ds", DefaultBadgerFile) {
		t.Fatalf("default db should follow datadir, got %s", c.DatabaseDir)
	}
	if c.NodeDatabaseDir("n1") != filepath.Join("/tmp/ds", DefaultBadgerFile, "n1") {
		t.Fatalf("unexpected node db dir %s", c.NodeDatabaseDir("n1"))
	}

	c = NewDefaultConfig()
	c.DatabaseDir = "/var/db"
	c.SetDataDir("/tmp/ds")
	if c.DatabaseDir != "/var/db" {
		t.Fatalf("an explicit db should not be changed, got %s", c.DatabaseDir)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
		"panic":   logrus.PanicLevel,
		"unknown": logrus.DebugLevel,
	}
	for s, l := range cases {
		if LogLevel(s) != l {
			t.Fatalf("%s should parse to %s", s, l)
		}
	}
}

func TestLogFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "duststorm")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	c := NewDefaultConfig()
	c.LogFile = filepath.Join(dir, "node.log")
	c.Logger().Logger.Out = ioutil.Discard
	c.Logger().WithField("this_id", "n1").Info("hello file")

	data, err := ioutil.ReadFile(c.LogFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Fatalf("log file should contain the entry, got %q", data)
	}
}
