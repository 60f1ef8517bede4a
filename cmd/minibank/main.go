package main

import (
	"context"
	"flag"
	"os"

	"github.com/minibank/minibank/pkg/app"
	"github.com/minibank/minibank/pkg/console"
	"github.com/minibank/minibank/pkg/diag"
)

var logger = diag.CreateLogger()

var cliArgs struct {
	dataFile string
}

func init() {
	flag.StringVar(&cliArgs.dataFile, "data", "", "Snapshot file path (overrides config)")

	flag.Parse()
}

func main() {
	ctx := context.Background()

	appCfg, err := app.LoadConfig()
	if err != nil {
		logger.WithError(err).Error(ctx, "Failed to load app config")
		os.Exit(1)
	}
	if cliArgs.dataFile != "" {
		appCfg.Storage = app.StorageConfig{Driver: "file", DSN: cliArgs.dataFile}
	}

	diag.SetupLoggingSystem(func(setup diag.LoggingSystemSetup) {
		setup.SetLogLevel(appCfg.Log.Level)
	})

	injector := app.BootstrapServices(appCfg)

	if err := injector(func(consoleApp console.App) error {
		return consoleApp.Run(ctx)
	}); err != nil {
		logger.WithError(err).Error(ctx, "Console app failed")
		os.Exit(1)
	}
}
