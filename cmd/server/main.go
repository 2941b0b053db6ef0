package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"keyword-enricher/internal/cli"
	"keyword-enricher/internal/config"
	"keyword-enricher/pkg/logger"
)

type Application struct {
	configPath string
	envFile    string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", "", "Configuration file path")
	flag.StringVar(&app.envFile, "env-file", ".env", "dotenv file with DataForSEO credentials")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func (app *Application) Run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(app.envFile); err != nil {
		return err
	}

	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return err
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}

	l := logger.New(cfg.Logger)
	logger.SetLogger(l)
	l.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
		"mode": cfg.API.Mode,
	}).Info("Starting keyword enrichment server")

	return cli.Serve(ctx, cfg, l)
}
