// Package logging provides the structured logger shared by the engine's
// orchestration layer.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds the module's default logger: text formatter for local runs,
// full timestamps, level driven by FINMODEL_LOG_LEVEL (defaults to info).
func New() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if raw := os.Getenv("FINMODEL_LOG_LEVEL"); raw != "" {
		if parsed, err := logrus.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	log.SetLevel(level)

	return log
}
