package repo

import (
	"database/sql"
	"errors"

	"PassVault/internal/cli/model"
	"PassVault/internal/cli/store"
)

// UserRepo хранит авторитетную копию владельца хранилища, присланную сервером.
// Пароль в таблицу не пишется никогда.
type UserRepo struct {
	st *store.Store
}

// Save делает upsert пользователя по id.
func (r *UserRepo) Save(u *model.User) error {
	_, err := r.st.Exec(`INSERT INTO users(id, name, email, status, updated_at)
        VALUES(?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email,
            status = excluded.status, updated_at = excluded.updated_at`,
		u.ID, u.Name, u.Email, string(u.Status), u.UpdatedAt)
	return err
}

// Load возвращает сохранённого пользователя или nil, если его ещё нет.
func (r *UserRepo) Load() (*model.User, error) {
	u := &model.User{}
	var status string
	err := r.st.QueryRowScan(`SELECT id, name, email, status, updated_at FROM users LIMIT 1`,
		nil, &u.ID, &u.Name, &u.Email, &status, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Status = model.UserStatus(status)
	return u, nil
}

// DeviceRepo хранит идентичность текущего устройства.
type DeviceRepo struct {
	st *store.Store
}

// Save делает upsert устройства по id.
func (r *DeviceRepo) Save(d *model.Device) error {
	_, err := r.st.Exec(`INSERT INTO devices(id, uuid, host, host_public_key, status, updated_at, created_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET uuid = excluded.uuid, host = excluded.host,
            host_public_key = excluded.host_public_key, status = excluded.status,
            updated_at = excluded.updated_at, created_at = excluded.created_at`,
		d.ID, d.UUID, d.Host, d.HostPublicKey, string(d.Status), d.UpdatedAt, d.CreatedAt)
	return err
}

// Load возвращает сохранённое устройство или nil, если его ещё нет.
func (r *DeviceRepo) Load() (*model.Device, error) {
	d := &model.Device{}
	var status string
	err := r.st.QueryRowScan(`SELECT id, uuid, host, host_public_key, status, updated_at, created_at
        FROM devices LIMIT 1`,
		nil, &d.ID, &d.UUID, &d.Host, &d.HostPublicKey, &status, &d.UpdatedAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Status = model.DeviceStatus(status)
	return d, nil
}
