package handlers

import (
	"PassVault/internal/config"
	"PassVault/internal/middleware"
	"PassVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	deviceService *service.DeviceService,
	syncService *service.SyncService,
	tokens *service.TokenDecoder,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	deviceHandler := NewDeviceHandler(deviceService, tokens, logger)
	syncHandler := NewSyncHandler(userService, deviceService, syncService, tokens, logger)

	// User routes
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)
	r.Post("/api/user/test", userHandler.Status)

	// Device routes
	r.Post("/api/device/register", deviceHandler.Register)

	// Sync routes
	r.Get("/api/v5/{deviceUUID}/{token}", syncHandler.Pull)
	r.Post("/api/v5/{deviceUUID}/{token}", syncHandler.Push)

	return &Handler{Router: r}
}
