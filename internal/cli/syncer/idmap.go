package syncer

import (
	"PassVault/internal/cli/model"
	"PassVault/internal/cli/repo"
)

// Scope выбирает охват снимка идентификаторов.
type Scope int

const (
	// ScopeFull — все записи, включая надгробия (pull).
	ScopeFull Scope = iota
	// ScopePending — только записи с неотправленными изменениями (push).
	ScopePending
)

// Mapping — неизменяемый снимок server_id → local_id по видам сущностей.
// Строится заново перед каждым sync-раундом и хранилище не мутирует.
// Dead* несут серверные id локальных надгробий: входящая запись с таким
// id не применяется, пока удаление не подтверждено сервером.
type Mapping struct {
	Groups      map[int64]int64
	GroupFields map[int64]int64
	Fields      map[int64]int64

	DeadGroups      map[int64]bool
	DeadGroupFields map[int64]bool
	DeadFields      map[int64]bool
}

func collect[T model.Synchronizable](g *repo.Gateway[T], pendingOnly bool) (map[int64]int64, map[int64]bool, error) {
	rows, err := g.GetForSync(pendingOnly)
	if err != nil {
		return nil, nil, err
	}
	m := make(map[int64]int64, len(rows))
	dead := make(map[int64]bool)
	for _, e := range rows {
		if e.RemoteID() > 0 {
			m[e.RemoteID()] = e.LocalID()
			if e.IsDeleted() {
				dead[e.RemoteID()] = true
			}
		}
	}
	return m, dead, nil
}

// BuildMapping собирает снимок для всех трёх видов. Ошибки чтения хранилища
// поднимаются наверх: раунд прерывается как мягкий отказ.
func BuildMapping(v *repo.Vault, scope Scope) (*Mapping, error) {
	pending := scope == ScopePending
	groups, deadGroups, err := collect(v.Groups, pending)
	if err != nil {
		return nil, err
	}
	groupFields, deadGroupFields, err := collect(v.GroupFields, pending)
	if err != nil {
		return nil, err
	}
	fields, deadFields, err := collect(v.Fields, pending)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		Groups:      groups,
		GroupFields: groupFields,
		Fields:      fields,

		DeadGroups:      deadGroups,
		DeadGroupFields: deadGroupFields,
		DeadFields:      deadFields,
	}, nil
}
