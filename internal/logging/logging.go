// Package logging configures the shared go-logging logger used by all
// server packages. Packages obtain the logger once at init time:
//
//	var log = logging.GetLog()
package logging

import (
	"os"
	"sync"

	gologging "github.com/op/go-logging"
)

const module = "chessnet"

var (
	once sync.Once
	log  *gologging.Logger

	format = gologging.MustStringFormatter(
		`%{time:15:04:05.000} %{level:-8s} %{shortfile:-20s} %{message}`,
	)
)

// GetLog returns the process-wide logger, initializing the stdout
// backend on first use. The default level is INFO.
func GetLog() *gologging.Logger {
	once.Do(func() {
		log = gologging.MustGetLogger(module)
		backend := gologging.NewLogBackend(os.Stdout, "", 0)
		formatted := gologging.NewBackendFormatter(backend, format)
		leveled := gologging.AddModuleLevel(formatted)
		leveled.SetLevel(gologging.INFO, "")
		gologging.SetBackend(leveled)
	})
	return log
}

// SetLevel changes the log level from its configuration name
// (debug, info, notice, warning, error, critical).
func SetLevel(level string) {
	GetLog()
	parsed, err := gologging.LogLevel(level)
	if err != nil {
		log.Warningf("unknown log level %q, keeping current level", level)
		return
	}
	gologging.SetLevel(parsed, module)
}
