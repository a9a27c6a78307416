package repo

import (
	"database/sql"

	"PassVault/internal/cli/model"
	"PassVault/internal/cli/store"
)

// Vault объединяет шлюзы всех видов сущностей одного локального хранилища.
type Vault struct {
	Groups      *Gateway[*model.Group]
	GroupFields *Gateway[*model.GroupField]
	Fields      *Gateway[*model.Field]
	Users       *UserRepo
	Devices     *DeviceRepo

	st *store.Store
}

// NewVault создаёт набор шлюзов над открытым хранилищем.
func NewVault(st *store.Store) *Vault {
	return &Vault{
		Groups:      NewGateway(st, GroupMeta()),
		GroupFields: NewGateway(st, GroupFieldMeta()),
		Fields:      NewGateway(st, FieldMeta()),
		Users:       &UserRepo{st: st},
		Devices:     &DeviceRepo{st: st},
		st:          st,
	}
}

// Store возвращает низкоуровневое хранилище (для сервисных запросов).
func (v *Vault) Store() *store.Store { return v.st }

// GroupMeta — отображение Group на таблицу groups.
func GroupMeta() EntityMeta[*model.Group] {
	return EntityMeta[*model.Group]{
		Table:     "groups",
		ParentCol: "parent_id",
		Columns: []string{"server_id", "user_id", "parent_id", "server_parent_id",
			"title", "icon", "note", "synced", "deleted", "created_at"},
		Bind: func(g *model.Group) []any {
			return []any{g.ServerID, g.UserID, g.ParentID, g.ServerParentID,
				g.Title, g.Icon, g.Note, boolInt(g.Synced), boolInt(g.Deleted), g.CreatedAt}
		},
		Scan: func(rows *sql.Rows) (*model.Group, error) {
			g := &model.Group{}
			var synced, deleted int
			err := rows.Scan(&g.ID, &g.ServerID, &g.UserID, &g.ParentID, &g.ServerParentID,
				&g.Title, &g.Icon, &g.Note, &synced, &deleted, &g.CreatedAt)
			if err != nil {
				return nil, err
			}
			g.Synced = synced != 0
			g.Deleted = deleted != 0
			return g, nil
		},
	}
}

// GroupFieldMeta — отображение GroupField на таблицу group_fields.
func GroupFieldMeta() EntityMeta[*model.GroupField] {
	return EntityMeta[*model.GroupField]{
		Table:     "group_fields",
		ParentCol: "group_id",
		Columns: []string{"server_id", "user_id", "group_id", "server_group_id",
			"title", "hidden", "synced", "deleted", "created_at"},
		Bind: func(f *model.GroupField) []any {
			return []any{f.ServerID, f.UserID, f.GroupID, f.ServerGroupID,
				f.Title, boolInt(f.Hidden), boolInt(f.Synced), boolInt(f.Deleted), f.CreatedAt}
		},
		Scan: func(rows *sql.Rows) (*model.GroupField, error) {
			f := &model.GroupField{}
			var hidden, synced, deleted int
			err := rows.Scan(&f.ID, &f.ServerID, &f.UserID, &f.GroupID, &f.ServerGroupID,
				&f.Title, &hidden, &synced, &deleted, &f.CreatedAt)
			if err != nil {
				return nil, err
			}
			f.Hidden = hidden != 0
			f.Synced = synced != 0
			f.Deleted = deleted != 0
			return f, nil
		},
	}
}

// FieldMeta — отображение Field на таблицу fields.
func FieldMeta() EntityMeta[*model.Field] {
	return EntityMeta[*model.Field]{
		Table:     "fields",
		ParentCol: "group_id",
		Columns: []string{"server_id", "user_id", "group_id", "server_group_id",
			"group_field_id", "server_group_field_id", "title", "value",
			"hidden", "synced", "deleted", "created_at"},
		Bind: func(f *model.Field) []any {
			return []any{f.ServerID, f.UserID, f.GroupID, f.ServerGroupID,
				f.GroupFieldID, f.ServerGroupFieldID, f.Title, f.Value,
				boolInt(f.Hidden), boolInt(f.Synced), boolInt(f.Deleted), f.CreatedAt}
		},
		Scan: func(rows *sql.Rows) (*model.Field, error) {
			f := &model.Field{}
			var hidden, synced, deleted int
			err := rows.Scan(&f.ID, &f.ServerID, &f.UserID, &f.GroupID, &f.ServerGroupID,
				&f.GroupFieldID, &f.ServerGroupFieldID, &f.Title, &f.Value,
				&hidden, &synced, &deleted, &f.CreatedAt)
			if err != nil {
				return nil, err
			}
			f.Hidden = hidden != 0
			f.Synced = synced != 0
			f.Deleted = deleted != 0
			return f, nil
		},
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// serverIDMap собирает свежую карту локальный id → серверный id для таблицы.
func (v *Vault) serverIDMap(table string) (map[int64]int64, error) {
	rows, err := v.st.Query("SELECT id, server_id FROM " + table + " WHERE server_id > 0")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	m := map[int64]int64{}
	for rows.Next() {
		var id, serverID int64
		if err := rows.Scan(&id, &serverID); err != nil {
			return nil, err
		}
		m[id] = serverID
	}
	return m, rows.Err()
}

// Reconcile закрывает разрывы серверных ссылок: записи, созданные локально
// до того, как их родитель получил серверный id, дописываются и сохраняются
// повторно. Выполняется по свежему чтению после применения серверного среза.
func (v *Vault) Reconcile() error {
	groupIDs, err := v.serverIDMap("groups")
	if err != nil {
		return err
	}
	groupFieldIDs, err := v.serverIDMap("group_fields")
	if err != nil {
		return err
	}

	groups, err := v.Groups.GetAll(nil, false)
	if err != nil {
		return err
	}
	for _, g := range groups {
		if g.ParentID > 0 && g.ServerParentID == 0 {
			if sid, ok := groupIDs[g.ParentID]; ok {
				g.ServerParentID = sid
				if _, err := v.Groups.Persist(g, true); err != nil {
					return err
				}
			}
		}
	}

	groupFields, err := v.GroupFields.GetAll(nil, false)
	if err != nil {
		return err
	}
	for _, f := range groupFields {
		if f.GroupID > 0 && f.ServerGroupID == 0 {
			if sid, ok := groupIDs[f.GroupID]; ok {
				f.ServerGroupID = sid
				if _, err := v.GroupFields.Persist(f, true); err != nil {
					return err
				}
			}
		}
	}

	fields, err := v.Fields.GetAll(nil, false)
	if err != nil {
		return err
	}
	for _, f := range fields {
		changed := false
		if f.GroupID > 0 && f.ServerGroupID == 0 {
			if sid, ok := groupIDs[f.GroupID]; ok {
				f.ServerGroupID = sid
				changed = true
			}
		}
		if f.GroupFieldID > 0 && f.ServerGroupFieldID == 0 {
			if sid, ok := groupFieldIDs[f.GroupFieldID]; ok {
				f.ServerGroupFieldID = sid
				changed = true
			}
		}
		if changed {
			if _, err := v.Fields.Persist(f, true); err != nil {
				return err
			}
		}
	}
	return nil
}
