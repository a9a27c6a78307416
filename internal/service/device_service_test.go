package service

import (
	"PassVault/internal/model"
	"PassVault/internal/repo"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// мок для repo.DeviceRepository
type mockDeviceRepo struct{ mock.Mock }

func (m *mockDeviceRepo) CreateDevice(ctx context.Context, d *model.Device) (*model.Device, error) {
	args := m.Called(ctx, d)
	if v, ok := args.Get(0).(*model.Device); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceRepo) GetByUUID(ctx context.Context, uuid string) (*model.Device, error) {
	args := m.Called(ctx, uuid)
	if v, ok := args.Get(0).(*model.Device); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDeviceRepo) Save(ctx context.Context, d *model.Device) error {
	return m.Called(ctx, d).Error(0)
}

var _ repo.DeviceRepository = (*mockDeviceRepo)(nil)

func TestDeviceService_Register(t *testing.T) {
	ctx := context.Background()
	const uuid = "11111111-2222-3333-4444-555555555555"

	t.Run("new device", func(t *testing.T) {
		m := new(mockDeviceRepo)
		svc := NewDeviceService(m)
		m.On("GetByUUID", mock.Anything, uuid).Return(nil, gorm.ErrRecordNotFound).Once()
		m.On("CreateDevice", mock.Anything, mock.MatchedBy(func(d *model.Device) bool {
			return d.UUID == uuid && d.UserID == 7 && d.Host == "laptop" && d.Status == model.DeviceActive
		})).Return(&model.Device{ID: 3, UUID: uuid, UserID: 7}, nil).Once()

		d, err := svc.Register(ctx, 7, uuid, "laptop")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), d.ID)
		m.AssertExpectations(t)
	})

	t.Run("idempotent for same user", func(t *testing.T) {
		m := new(mockDeviceRepo)
		svc := NewDeviceService(m)
		existing := &model.Device{ID: 3, UUID: uuid, UserID: 7, Host: "laptop"}
		m.On("GetByUUID", mock.Anything, uuid).Return(existing, nil).Once()

		d, err := svc.Register(ctx, 7, uuid, "laptop")
		assert.NoError(t, err)
		assert.Equal(t, int64(3), d.ID)
		m.AssertExpectations(t)
	})

	t.Run("same user updates host", func(t *testing.T) {
		m := new(mockDeviceRepo)
		svc := NewDeviceService(m)
		existing := &model.Device{ID: 3, UUID: uuid, UserID: 7, Host: "laptop"}
		m.On("GetByUUID", mock.Anything, uuid).Return(existing, nil).Once()
		m.On("Save", mock.Anything, mock.MatchedBy(func(d *model.Device) bool {
			return d.ID == 3 && d.Host == "desktop"
		})).Return(nil).Once()

		d, err := svc.Register(ctx, 7, uuid, "desktop")
		assert.NoError(t, err)
		assert.Equal(t, "desktop", d.Host)
		m.AssertExpectations(t)
	})

	t.Run("conflict for another user", func(t *testing.T) {
		m := new(mockDeviceRepo)
		svc := NewDeviceService(m)
		m.On("GetByUUID", mock.Anything, uuid).Return(&model.Device{ID: 3, UUID: uuid, UserID: 7}, nil).Once()

		d, err := svc.Register(ctx, 8, uuid, "laptop")
		assert.Nil(t, d)
		assert.ErrorIs(t, err, ErrDeviceTaken)
		m.AssertExpectations(t)
	})
}

func TestDeviceService_SaveSessionSecret(t *testing.T) {
	m := new(mockDeviceRepo)
	svc := NewDeviceService(m)
	d := &model.Device{ID: 3}
	m.On("Save", mock.Anything, d).Return(nil).Once()

	err := svc.SaveSessionSecret(context.Background(), d, "s-1")
	assert.NoError(t, err)
	assert.Equal(t, "s-1", d.SessionSecret)
	m.AssertExpectations(t)
}
