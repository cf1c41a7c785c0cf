package core

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// NewLogger returns a new pre-configured logger writing to stderr.
func NewLogger(level uint32) *log.Logger {
	logger := log.New()

	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&log.TextFormatter{})
	logger.SetLevel(log.Level(level))

	return logger
}

// sessionLogger returns the logger of a session, tagged with its target and identifier.
func sessionLogger(level uint32, host string, id uint16) *log.Entry {
	return NewLogger(level).WithFields(log.Fields{
		"host": host,
		"id":   id,
	})
}
