package repo

import (
	"context"

	"PassVault/internal/model"

	"gorm.io/gorm"
)

// DeviceRepository — контракт доступа к устройствам.
type DeviceRepository interface {
	// CreateDevice сохраняет новое устройство.
	CreateDevice(ctx context.Context, d *model.Device) (*model.Device, error)

	// GetByUUID ищет устройство по uuid.
	// Возвращает gorm.ErrRecordNotFound, если такого нет.
	GetByUUID(ctx context.Context, uuid string) (*model.Device, error)

	// Save перезаписывает устройство целиком.
	Save(ctx context.Context, d *model.Device) error
}

type deviceRepo struct {
	db *gorm.DB
}

// NewDeviceRepository создаёт реализацию репозитория для Device.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepo{db: db}
}

func (r *deviceRepo) CreateDevice(ctx context.Context, d *model.Device) (*model.Device, error) {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func (r *deviceRepo) GetByUUID(ctx context.Context, uuid string) (*model.Device, error) {
	var d model.Device
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deviceRepo) Save(ctx context.Context, d *model.Device) error {
	return r.db.WithContext(ctx).Save(d).Error
}
