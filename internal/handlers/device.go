package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"PassVault/internal/middleware"
	"PassVault/internal/service"

	"go.uber.org/zap"
)

// DeviceHandler регистрирует устройства пользователя.
type DeviceHandler struct {
	DeviceService *service.DeviceService
	Tokens        *service.TokenDecoder
	Logger        *zap.SugaredLogger
}

// NewDeviceHandler создаёт хендлер device
func NewDeviceHandler(deviceService *service.DeviceService, tokens *service.TokenDecoder, logger *zap.SugaredLogger) *DeviceHandler {
	return &DeviceHandler{DeviceService: deviceService, Tokens: tokens, Logger: logger}
}

// DeviceRegisterRequest тело запроса регистрации устройства.
type DeviceRegisterRequest struct {
	UUID string `json:"uuid"`
	Host string `json:"host"`
}

// DeviceRegisterResponse ответ с серверным id устройства и открытым
// ключом, которым устройство будет шифровать токены синхронизации.
type DeviceRegisterResponse struct {
	ID            int64  `json:"id"`
	UUID          string `json:"uuid"`
	HostPublicKey string `json:"hostPublicKey"`
}

// Register привязывает устройство к аутентифицированному пользователю.
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req DeviceRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.UUID == "" {
		http.Error(w, "uuid required", http.StatusBadRequest)
		return
	}

	d, err := h.DeviceService.Register(r.Context(), userID, req.UUID, req.Host)
	if err != nil {
		if errors.Is(err, service.ErrDeviceTaken) {
			http.Error(w, "device already registered", http.StatusConflict)
			return
		}
		h.Logger.Errorw("Device register: service error", "user_id", userID, "uuid", req.UUID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(DeviceRegisterResponse{
		ID:            d.ID,
		UUID:          d.UUID,
		HostPublicKey: h.Tokens.PublicKeyPEM(),
	})
}
