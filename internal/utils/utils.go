package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

// ParseLogLevel maps a --loglevel value to a logrus level.
func ParseLogLevel(level string) (logrus.Level, error) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel, nil
	case "info":
		return logrus.InfoLevel, nil
	case "warning", "warn":
		return logrus.WarnLevel, nil
	case "error":
		return logrus.ErrorLevel, nil
	case "fatal":
		return logrus.FatalLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("bad log level %q", level)
	}
}

func SetLogLevel(level string) {
	l, err := ParseLogLevel(level)
	if err != nil {
		Log.Fatal(err)
	}
	Log.SetLevel(l)
}
