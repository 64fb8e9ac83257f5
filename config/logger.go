// config/logger.go
package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

func InitLogger() {
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	Logger.SetLevel(logrus.InfoLevel) // or DebugLevel, etc.
}

// SetLogLevel accepts logrus level names; unknown names leave the level unchanged.
func SetLogLevel(level string) {
	if strings.TrimSpace(level) == "" {
		return
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.Warn("Unknown log level ", level, ", keeping ", Logger.GetLevel())
		return
	}
	Logger.SetLevel(parsed)
}
