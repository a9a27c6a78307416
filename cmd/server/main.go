package main

import (
	"net/http"

	"PassVault/internal/config"
	"PassVault/internal/handlers"
	"PassVault/internal/middleware"
	"PassVault/internal/repo"
	"PassVault/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	tokens, err := service.NewTokenDecoder(cfg.PrivateKeyFile)
	if err != nil {
		sugar.Fatalw("failed to load private key", "file", cfg.PrivateKeyFile, "error", err)
	}

	userRepo := repo.NewUserRepository(gormDB)
	deviceRepo := repo.NewDeviceRepository(gormDB)
	vaultRepo := repo.NewVaultRepository(gormDB)

	userService := service.NewUserService(userRepo)
	deviceService := service.NewDeviceService(deviceRepo)
	syncService := service.NewSyncService(vaultRepo, sugar)

	h := handlers.NewHandler(userService, deviceService, syncService, tokens, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabaseDSN", cfg.DatabaseDSN,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
