package model

// UserStatus — статус учётной записи, как его сообщает сервер.
type UserStatus string

const (
	UserActive      UserStatus = "ACTIVE"
	UserNotActive   UserStatus = "NOT_ACTIVE"
	UserDeleted     UserStatus = "DELETED"
	UserInvalidated UserStatus = "INVALIDATED"
)

// User — владелец хранилища. Password заполняется только на время живой
// сессии и затирается при её завершении; на диске хранится лишь дайджест.
type User struct {
	ID        int64
	Name      string
	Email     string
	Password  []byte // транзиентный секрет; см. crypto.Wipe
	Status    UserStatus
	UpdatedAt int64
}

// DeviceStatus — статус устройства на сервере.
type DeviceStatus string

const (
	DeviceInactive    DeviceStatus = "INACTIVE"
	DeviceActive      DeviceStatus = "ACTIVE"
	DeviceDeleted     DeviceStatus = "DELETED"
	DeviceInvalidated DeviceStatus = "INVALIDATED"
)

// Device — зарегистрированное устройство; UUID выбирает локальный файл
// хранилища, HostPublicKey используется для шифрования sync-токена.
type Device struct {
	ID            int64
	UUID          string
	Host          string
	HostPublicKey string // PEM
	Status        DeviceStatus
	UpdatedAt     int64
	CreatedAt     int64
}
