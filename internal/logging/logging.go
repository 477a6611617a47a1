package logging

import (
	"github.com/sirupsen/logrus"
)

// Setup configures the process-wide logrus logger. Production gets JSON lines,
// everything else the human readable text formatter.
func Setup(level, env string) {
	if env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, falling back to info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
