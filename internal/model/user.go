package model

import "time"

// Статусы пользователя на сервере.
const (
	UserActive      = "ACTIVE"
	UserNotActive   = "NOT_ACTIVE"
	UserDeleted     = "DELETED"
	UserInvalidated = "INVALIDATED"
)

// User — серверная модель пользователя хранилища.
type User struct {
	ID    int64  `gorm:"primaryKey"`
	Name  string `gorm:"not null"`
	Email string `gorm:"uniqueIndex;not null"`

	// Password — bcrypt-хеш для входа через управляющий API.
	Password string `gorm:"not null"`
	// SyncDigest — SHA-256(email:password) в hex; им подписывается
	// pull-токен синхронизации, bcrypt здесь не годится.
	SyncDigest string `gorm:"not null"`

	Status string `gorm:"not null;default:ACTIVE"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Статусы устройства.
const (
	DeviceInactive    = "INACTIVE"
	DeviceActive      = "ACTIVE"
	DeviceDeleted     = "DELETED"
	DeviceInvalidated = "INVALIDATED"
)

// Device — зарегистрированное устройство пользователя. Каждое устройство
// держит собственную локальную копию хранилища и синхронизируется
// независимо от остальных.
type Device struct {
	ID     int64  `gorm:"primaryKey"`
	UUID   string `gorm:"uniqueIndex;not null"`
	UserID int64  `gorm:"not null;index"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	Host   string
	Status string `gorm:"not null;default:ACTIVE"`

	// SessionSecret — секрет последнего pull; push с другим секретом
	// отклоняется, пока устройство не сделает новый pull.
	SessionSecret string

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
