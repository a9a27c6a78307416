package model

import "time"

// Group — узел дерева групп. ParentID ссылается на серверный id
// родительской группы, 0 означает корень.
type Group struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"not null;index"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	ParentID int64  `gorm:"not null;default:0;index"`
	Title    string `gorm:"not null"`
	Icon     string
	Note     string

	Deleted bool `gorm:"not null;default:false"`

	// CreatedUnix — клиентская метка создания (unix-секунды); сервер
	// хранит её как есть и возвращает в снимках.
	CreatedUnix int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// GroupField — шаблон поля внутри группы.
type GroupField struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"not null;index"`

	GroupID int64  `gorm:"not null;index"`
	Title   string `gorm:"not null"`
	Hidden  bool   `gorm:"not null;default:false"`

	Deleted bool `gorm:"not null;default:false"`

	CreatedUnix int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Field — значение поля. Value хранится зашифрованным на клиенте,
// сервер видит только шифртекст.
type Field struct {
	ID     int64 `gorm:"primaryKey"`
	UserID int64 `gorm:"not null;index"`

	GroupID      int64 `gorm:"not null;index"`
	GroupFieldID int64 `gorm:"not null;default:0"`

	Title  string `gorm:"not null"`
	Value  []byte
	Hidden bool `gorm:"not null;default:false"`

	Deleted bool `gorm:"not null;default:false"`

	CreatedUnix int64     `gorm:"not null;default:0"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}
