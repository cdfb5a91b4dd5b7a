// entry point to the AfriTix backend
package main

import (
	"github.com/ds124wfegd/afritix/config"
	"github.com/ds124wfegd/afritix/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(new(logrus.JSONFormatter))

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	logrus.WithFields(logrus.Fields{
		"version":     cfg.Server.AppVersion,
		"environment": cfg.Server.Env,
	}).Info("Configuration loaded")
	appServer.NewServer(cfg)
}
