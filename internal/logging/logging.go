package logging

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Setup configures the global logrus logger from the log.* keys.
func Setup() {
	logrus.SetOutput(os.Stdout)

	if viper.GetString("log.format") == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		logrus.WithError(err).Warn("unknown log level, falling back to info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
