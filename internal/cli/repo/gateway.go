package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"PassVault/internal/cli/model"
	"PassVault/internal/cli/store"
)

// EntityMeta описывает, как сущность вида T отображается на таблицу:
// имя таблицы, изменяемые столбцы и функции привязки/сканирования.
// Диспетчеризация по виду сущности выполняется этой таблицей функций,
// а не ветвлением по типам.
type EntityMeta[T model.Synchronizable] struct {
	Table     string
	ParentCol string   // столбец локального родителя; используется в фильтре и сортировке
	Columns   []string // изменяемые столбцы без id, в порядке Bind/Scan

	// Bind возвращает значения Columns для записи сущности.
	Bind func(e T) []any
	// Scan читает строку вида (id, Columns...) в новую сущность.
	Scan func(rows *sql.Rows) (T, error)
}

// Gateway — обобщённый шлюз персистентности для одного вида сущностей.
// Любая ошибка хранилища — жёсткий отказ, решения о повторе за вызывающим.
type Gateway[T model.Synchronizable] struct {
	st   *store.Store
	meta EntityMeta[T]
}

// NewGateway создаёт шлюз над открытым хранилищем.
func NewGateway[T model.Synchronizable](st *store.Store, meta EntityMeta[T]) *Gateway[T] {
	return &Gateway[T]{st: st, meta: meta}
}

// GetAll возвращает неудалённые записи, отсортированные по (родитель, id).
// parent, если задан, ограничивает выборку одной группой-родителем;
// pendingOnly ограничивает её записями с неотправленными изменениями.
func (g *Gateway[T]) GetAll(parent *int64, pendingOnly bool) ([]T, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s WHERE deleted = 0",
		strings.Join(g.meta.Columns, ", "), g.meta.Table)
	args := []any{}
	if parent != nil {
		q += fmt.Sprintf(" AND %s = ?", g.meta.ParentCol)
		args = append(args, *parent)
	}
	if pendingOnly {
		q += " AND synced = 0"
	}
	q += fmt.Sprintf(" ORDER BY %s, id", g.meta.ParentCol)
	return g.queryAll(q, args...)
}

// GetForSync возвращает записи для sync-раунда: в отличие от GetAll,
// надгробия попадают в выборку, иначе локальные удаления не доезжают
// до сервера. pendingOnly ограничивает её неотправленными изменениями.
func (g *Gateway[T]) GetForSync(pendingOnly bool) ([]T, error) {
	q := fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(g.meta.Columns, ", "), g.meta.Table)
	if pendingOnly {
		q += " WHERE synced = 0"
	}
	q += fmt.Sprintf(" ORDER BY %s, id", g.meta.ParentCol)
	return g.queryAll(q)
}

func (g *Gateway[T]) queryAll(q string, args ...any) ([]T, error) {
	rows, err := g.st.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []T
	for rows.Next() {
		e, err := g.meta.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", g.meta.Table, err)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Persist сохраняет сущность: UPDATE всех изменяемых столбцов при
// LocalID > 0, иначе INSERT. Возвращает число затронутых строк, если
// returnRowsModified, иначе — локальный id (свежеприсвоенный для INSERT).
// При ошибке возвращается model.NoID.
func (g *Gateway[T]) Persist(e T, returnRowsModified bool) (int64, error) {
	if e.LocalID() > 0 {
		set := make([]string, len(g.meta.Columns))
		for i, c := range g.meta.Columns {
			set[i] = c + " = ?"
		}
		q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", g.meta.Table, strings.Join(set, ", "))
		args := append(g.meta.Bind(e), e.LocalID())
		affected, err := g.st.Exec(q, args...)
		if err != nil {
			return model.NoID, err
		}
		if returnRowsModified {
			return affected, nil
		}
		return e.LocalID(), nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(g.meta.Columns)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		g.meta.Table, strings.Join(g.meta.Columns, ", "), placeholders)
	id, err := g.st.ExecInsert(q, g.meta.Bind(e)...)
	if err != nil {
		return model.NoID, err
	}
	e.SetLocalID(id)
	if returnRowsModified {
		return 1, nil
	}
	return id, nil
}

// SoftDelete ставит надгробие: deleted=1, synced=0.
func (g *Gateway[T]) SoftDelete(id int64) (int64, error) {
	q := fmt.Sprintf("UPDATE %s SET deleted = 1, synced = 0 WHERE id = ?", g.meta.Table)
	return g.st.Exec(q, id)
}

// SoftDeleteByParent ставит надгробия всем записям группы-родителя.
func (g *Gateway[T]) SoftDeleteByParent(parentID int64) (int64, error) {
	q := fmt.Sprintf("UPDATE %s SET deleted = 1, synced = 0 WHERE %s = ?", g.meta.Table, g.meta.ParentCol)
	return g.st.Exec(q, parentID)
}

// MarkTombstonesSynced подтверждает надгробия: synced=1. Вызывается после
// push-раунда, записавшего удаления на сервер; подтверждённое надгробие
// становится кандидатом на физическую очистку.
func (g *Gateway[T]) MarkTombstonesSynced() (int64, error) {
	q := fmt.Sprintf("UPDATE %s SET synced = 1 WHERE deleted = 1 AND synced = 0", g.meta.Table)
	return g.st.Exec(q)
}

// HardDelete физически удаляет запись. Разрешено только для надгробий,
// уже подтверждённых сервером (deleted=1 AND synced=1).
func (g *Gateway[T]) HardDelete(id int64) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE id = ? AND deleted = 1 AND synced = 1", g.meta.Table)
	return g.st.Exec(q, id)
}
