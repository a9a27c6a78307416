package commands

import (
	"PassVault/internal/cli/service"
	"PassVault/internal/config"

	"go.uber.org/zap"
)

// newLogger возвращает sugared-логгер для команд клиента.
func newLogger() *zap.SugaredLogger {
	l, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// openService открывает сессию хранилища для текущего устройства.
// cleanup обязателен к вызову: закрывает БД и снимает замок.
func openService(cfg *config.Config) (*service.VaultService, func(), error) {
	log := newLogger()
	svc, err := service.Open(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = svc.Close()
		_ = log.Sync()
	}
	return svc, cleanup, nil
}
