// Package logging configures the process-wide structured logger. It mirrors
// the teacher binary's runtime logger setup — write to a per-user state
// directory when one is writable, fall back to stderr otherwise — upgraded
// to logrus so every log line carries structured fields instead of a
// formatted string.
package logging

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Configure points the given logger's output at a per-user state file,
// falling back to stderr when the home directory or log file can't be
// opened. It returns a cleanup func that closes the file, always safe to
// defer even when no file was opened.
func Configure(log *logrus.Logger, appName string, jsonOutput bool) func() {
	if jsonOutput {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", appName)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, appName+".log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

// New builds a logrus.Logger at the given level, defaulting to info when
// the level string doesn't parse.
func New(level string) *logrus.Logger {
	log := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
