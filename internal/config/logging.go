package config

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// EnvLogLevel names the environment variable holding the log level.
const EnvLogLevel = "IMAGE_DESKEW_LOG_LEVEL"

// SetupLogging configures the standard logrus logger.
//
// Output goes to w (stderr in production, since stdout carries the protocol).
// level may be empty, in which case EnvLogLevel is consulted and "info" is the
// fallback. Unknown level names fall back to "info" as well.
func SetupLogging(w io.Writer, level string) *logrus.Logger {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	logger := logrus.StandardLogger()
	logger.SetOutput(w)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return logger
}
