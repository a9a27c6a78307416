package model

// NoID возвращается хранилищем, когда запись не удалось сохранить.
const NoID int64 = -1

// Synchronizable — общий набор возможностей сущностей хранилища,
// участвующих в синхронизации (Group, GroupField, Field).
type Synchronizable interface {
	// LocalID возвращает локальный первичный ключ; 0 — запись ещё не сохранена.
	LocalID() int64
	SetLocalID(id int64)

	// RemoteID возвращает идентификатор, присвоенный сервером; 0 — сервер о
	// записи ещё не знает. После первого присвоения значение не меняется.
	RemoteID() int64
	SetRemoteID(id int64)

	// Owner возвращает id пользователя-владельца.
	Owner() int64
	SetOwner(id int64)

	// IsSynced: false — есть локальные изменения, не отправленные на сервер.
	IsSynced() bool
	SetSynced(v bool)

	// IsDeleted: true — надгробие мягкого удаления; физически запись
	// удаляется только после подтверждённой синхронизации.
	IsDeleted() bool
	SetDeleted(v bool)

	// CreationUnix возвращает метку времени создания (unix seconds).
	CreationUnix() int64
}

// Meta — встраиваемая реализация общих атрибутов Synchronizable.
type Meta struct {
	ID        int64 // локальный id; 0 = не сохранено
	ServerID  int64 // серверный id; 0 = неизвестен серверу
	UserID    int64
	Synced    bool
	Deleted   bool
	CreatedAt int64
}

func (m *Meta) LocalID() int64       { return m.ID }
func (m *Meta) SetLocalID(id int64)  { m.ID = id }
func (m *Meta) RemoteID() int64      { return m.ServerID }
func (m *Meta) SetRemoteID(id int64) { m.ServerID = id }
func (m *Meta) Owner() int64         { return m.UserID }
func (m *Meta) SetOwner(id int64)    { m.UserID = id }
func (m *Meta) IsSynced() bool       { return m.Synced }
func (m *Meta) SetSynced(v bool)     { m.Synced = v }
func (m *Meta) IsDeleted() bool      { return m.Deleted }
func (m *Meta) SetDeleted(v bool)    { m.Deleted = v }
func (m *Meta) CreationUnix() int64  { return m.CreatedAt }
