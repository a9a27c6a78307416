package service

import (
	"context"
	"errors"

	"PassVault/internal/model"
	"PassVault/internal/repo"

	"gorm.io/gorm"
)

// ErrDeviceTaken — uuid уже зарегистрирован за другим пользователем.
var ErrDeviceTaken = errors.New("device uuid already registered")

// DeviceService регистрирует устройства и отдаёт их по uuid.
type DeviceService struct {
	repo repo.DeviceRepository
}

func NewDeviceService(r repo.DeviceRepository) *DeviceService {
	return &DeviceService{repo: r}
}

// Register привязывает устройство к пользователю. Повторная регистрация
// того же uuid тем же пользователем идемпотентна.
func (s *DeviceService) Register(ctx context.Context, userID int64, uuid, host string) (*model.Device, error) {
	existing, err := s.repo.GetByUUID(ctx, uuid)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.UserID != userID {
			return nil, ErrDeviceTaken
		}
		if host != "" && existing.Host != host {
			existing.Host = host
			if err := s.repo.Save(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	d := &model.Device{
		UUID:   uuid,
		UserID: userID,
		Host:   host,
		Status: model.DeviceActive,
	}
	return s.repo.CreateDevice(ctx, d)
}

// GetByUUID возвращает устройство по uuid.
func (s *DeviceService) GetByUUID(ctx context.Context, uuid string) (*model.Device, error) {
	return s.repo.GetByUUID(ctx, uuid)
}

// SaveSessionSecret запоминает секрет pull-сессии устройства.
func (s *DeviceService) SaveSessionSecret(ctx context.Context, d *model.Device, secret string) error {
	d.SessionSecret = secret
	return s.repo.Save(ctx, d)
}
