package main

import (
	"context"
	_ "time/tzdata"

	"studyrooms/pkg/app"
	"studyrooms/pkg/config"
)

const ServiceName = "studyrooms"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.LogConfiguration()
	cfg.SetClients()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Study Rooms service")
	serverApp := app.NewApplication(cfg)
	if err := serverApp.SetApp(context.Background()); err != nil {
		cfg.Log.Fatal("Failed to initialize application", "error", err)
	}
	serverApp.Run()
}
