package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PassVault/internal/model"
	"PassVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Сентинельные коды протокола синхронизации. Тело ответа об ошибке
// всегда "ERR#<код>"; коды от 600 клиент трактует как отказ сервера.
const (
	codeBadToken         = 460
	codeUnknownDevice    = 461
	codeBadCredentials   = 462
	codeMalformedPayload = 463
	codeStorage          = 601
)

// tokenMaxSkew ограничивает возраст метки времени токена в обе стороны:
// перехваченный путь запроса перестаёт работать после истечения окна.
const tokenMaxSkew = 5 * time.Minute

// SyncHandler обслуживает протокол /api/v5/{deviceUUID}/{token}.
type SyncHandler struct {
	Users   *service.UserService
	Devices *service.DeviceService
	Sync    *service.SyncService
	Tokens  *service.TokenDecoder
	Logger  *zap.SugaredLogger
}

// NewSyncHandler создаёт хендлер синхронизации.
func NewSyncHandler(
	users *service.UserService,
	devices *service.DeviceService,
	sync *service.SyncService,
	tokens *service.TokenDecoder,
	logger *zap.SugaredLogger,
) *SyncHandler {
	return &SyncHandler{Users: users, Devices: devices, Sync: sync, Tokens: tokens, Logger: logger}
}

func writeSentinel(w http.ResponseWriter, httpStatus, code int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(httpStatus)
	_, _ = fmt.Fprintf(w, "ERR#%d", code)
}

// authenticate разбирает токен из пути и сопоставляет его устройству.
func (h *SyncHandler) authenticate(w http.ResponseWriter, r *http.Request) (*model.User, *model.Device, *service.SyncToken, bool) {
	uuid := chi.URLParam(r, "deviceUUID")
	rawToken := chi.URLParam(r, "token")

	tok, err := h.Tokens.Decode(rawToken)
	if err != nil {
		h.Logger.Warnw("sync: bad token", "uuid", uuid, "error", err)
		writeSentinel(w, http.StatusUnauthorized, codeBadToken)
		return nil, nil, nil, false
	}
	if skew := time.Now().Unix() - tok.Timestamp; skew > int64(tokenMaxSkew/time.Second) ||
		skew < -int64(tokenMaxSkew/time.Second) {
		h.Logger.Warnw("sync: stale token", "uuid", uuid, "skew_seconds", skew)
		writeSentinel(w, http.StatusUnauthorized, codeBadToken)
		return nil, nil, nil, false
	}

	dev, err := h.Devices.GetByUUID(r.Context(), uuid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeSentinel(w, http.StatusNotFound, codeUnknownDevice)
		} else {
			h.Logger.Errorw("sync: device lookup", "uuid", uuid, "error", err)
			writeSentinel(w, http.StatusInternalServerError, codeStorage)
		}
		return nil, nil, nil, false
	}
	if dev.ID != tok.DeviceID || dev.Status != model.DeviceActive {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return nil, nil, nil, false
	}

	user, err := h.Users.GetByID(r.Context(), dev.UserID)
	if err != nil {
		h.Logger.Errorw("sync: user lookup", "user_id", dev.UserID, "error", err)
		writeSentinel(w, http.StatusInternalServerError, codeStorage)
		return nil, nil, nil, false
	}
	if user.Status != model.UserActive {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return nil, nil, nil, false
	}
	return user, dev, tok, true
}

// Pull отдаёт авторитетный снимок хранилища пользователя.
// Pull-токен обязан нести digest учётных данных.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	user, dev, tok, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !h.Users.VerifyDigest(user, tok.Credentials) {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return
	}

	// секрет сессии живёт до следующего pull
	if err := h.Devices.SaveSessionSecret(r.Context(), dev, tok.Secret); err != nil {
		h.Logger.Errorw("sync: save session secret", "uuid", dev.UUID, "error", err)
		writeSentinel(w, http.StatusInternalServerError, codeStorage)
		return
	}

	snap, err := h.Sync.Snapshot(r.Context(), user.ID)
	if err != nil {
		h.Logger.Errorw("sync: snapshot", "user_id", user.ID, "error", err)
		writeSentinel(w, http.StatusInternalServerError, codeStorage)
		return
	}
	h.writeEnvelope(w, user, dev, snap, nil)
}

// Push применяет изменения устройства и возвращает свежий снимок с эхом
// клиентских id для строк, созданных этим же запросом.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	user, dev, tok, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if !tok.Push {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return
	}
	if dev.SessionSecret != "" && dev.SessionSecret != tok.Secret {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return
	}

	cs, pushedUUID, err := decodeChangeset(r)
	if err != nil {
		h.Logger.Warnw("sync: malformed push", "uuid", dev.UUID, "error", err)
		writeSentinel(w, http.StatusBadRequest, codeMalformedPayload)
		return
	}
	if pushedUUID != dev.UUID {
		writeSentinel(w, http.StatusUnauthorized, codeBadCredentials)
		return
	}

	assigned, err := h.Sync.Apply(r.Context(), user.ID, cs)
	if err != nil {
		h.Logger.Errorw("sync: apply", "user_id", user.ID, "error", err)
		writeSentinel(w, http.StatusInternalServerError, codeStorage)
		return
	}

	snap, err := h.Sync.Snapshot(r.Context(), user.ID)
	if err != nil {
		h.Logger.Errorw("sync: snapshot", "user_id", user.ID, "error", err)
		writeSentinel(w, http.StatusInternalServerError, codeStorage)
		return
	}
	h.writeEnvelope(w, user, dev, snap, assigned)
}

func (h *SyncHandler) writeEnvelope(w http.ResponseWriter, user *model.User, dev *model.Device, snap *service.Snapshot, assigned *service.Assigned) {
	env := buildEnvelope(time.Now().Unix(), user, dev, h.Tokens.PublicKeyPEM(), snap, assigned)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		h.Logger.Errorw("sync: write envelope", "user_id", user.ID, "error", err)
	}
}
