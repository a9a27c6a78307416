package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"PassVault/internal/cli/commands"
	"PassVault/internal/config"
)

// заполняются через -ldflags при сборке релиза
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg := config.NewConfig()
	if cfg.Version {
		fmt.Printf("PassVault CLI\nVersion: %s\nBuild date: %s\n", version, buildDate)
		return
	}

	// Ctrl+C и SIGTERM отменяют контекст текущей команды; замок хранилища
	// при этом снимается штатно через defer внутри команд.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if code := commands.Dispatch(ctx, cfg, flag.Args()); code != 0 {
		os.Exit(code)
	}
}
