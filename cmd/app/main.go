package main

import (
	"flag"
	"log"
	"os"

	"StreetPull/internal/di"
	"StreetPull/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	local := flag.Bool("local", false, "file sinks only: disable Kafka, ClickHouse, Redis and the HTTP server")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if *local {
		cfg.Localize()
	}

	log.Printf("env=%s institutions=%d lookback=%dd", cfg.Environment, len(cfg.Institutions), cfg.StreetAccount.LookbackDays)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
