package service

import (
	"PassVault/internal/model"
	"PassVault/internal/repo"
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

var syncDBSeq atomic.Int64

// newSyncService поднимает in-memory SQLite (modernc.org/sqlite) и
// собирает сервис поверх настоящего репозитория. Каждому тесту своя
// именованная база, чтобы данные не перетекали между тестами.
func newSyncService(t *testing.T) (*SyncService, repo.VaultRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:syncsvc%d?mode=memory&cache=shared", syncDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Group{}, &model.GroupField{}, &model.Field{}))
	vault := repo.NewVaultRepository(db)
	return NewSyncService(vault, zap.NewNop().Sugar()), vault
}

func TestSyncService_Apply_NewRecords(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()
	const userID = int64(1)

	// потомок идёт в срезе раньше родителя, ссылки только клиентские
	cs := Changeset{
		Groups: []GroupIn{
			{ClientID: 11, ClientParentID: 10, Entity: model.Group{Title: "child", CreatedUnix: 1700000001}},
			{ClientID: 10, Entity: model.Group{Title: "parent", CreatedUnix: 1700000000}},
		},
		GroupFields: []GroupFieldIn{
			{ClientID: 21, ClientGroupID: 10, Entity: model.GroupField{Title: "login", Hidden: false}},
		},
		Fields: []FieldIn{
			{ClientID: 31, ClientGroupID: 10, ClientGroupFieldID: 21,
				Entity: model.Field{Title: "login", Value: []byte("cipher")}},
		},
	}

	assigned, err := svc.Apply(ctx, userID, cs)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snap.Groups, 2)
	require.Len(t, snap.GroupFields, 1)
	require.Len(t, snap.Fields, 1)

	var parent, child *model.Group
	for i := range snap.Groups {
		switch snap.Groups[i].Title {
		case "parent":
			parent = &snap.Groups[i]
		case "child":
			child = &snap.Groups[i]
		}
	}
	require.NotNil(t, parent)
	require.NotNil(t, child)

	// родительская ссылка дорезолвлена вторым проходом
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, userID, parent.UserID)

	gf := snap.GroupFields[0]
	assert.Equal(t, parent.ID, gf.GroupID)

	f := snap.Fields[0]
	assert.Equal(t, parent.ID, f.GroupID)
	assert.Equal(t, gf.ID, f.GroupFieldID)
	assert.Equal(t, []byte("cipher"), f.Value)

	// эхо: серверный id -> клиентский id
	assert.Equal(t, int64(10), assigned.Groups[parent.ID])
	assert.Equal(t, int64(11), assigned.Groups[child.ID])
	assert.Equal(t, int64(21), assigned.GroupFields[gf.ID])
	assert.Equal(t, int64(31), assigned.Fields[f.ID])
}

func TestSyncService_Apply_UpdateExisting(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()
	const userID = int64(1)

	assigned, err := svc.Apply(ctx, userID, Changeset{
		Groups: []GroupIn{{ClientID: 5, Entity: model.Group{Title: "old"}}},
	})
	require.NoError(t, err)
	var serverID int64
	for sid := range assigned.Groups {
		serverID = sid
	}
	require.NotZero(t, serverID)

	_, err = svc.Apply(ctx, userID, Changeset{
		Groups: []GroupIn{{ClientID: 5, Entity: model.Group{ID: serverID, Title: "new", Note: "n"}}},
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, "new", snap.Groups[0].Title)
	assert.Equal(t, "n", snap.Groups[0].Note)
	assert.Equal(t, serverID, snap.Groups[0].ID)
}

func TestSyncService_Apply_UnknownIDSkipped(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()

	assigned, err := svc.Apply(ctx, 1, Changeset{
		Groups: []GroupIn{{ClientID: 5, Entity: model.Group{ID: 999, Title: "ghost"}}},
	})
	require.NoError(t, err)
	assert.Empty(t, assigned.Groups)

	snap, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Groups)
}

func TestSyncService_Apply_ForeignUserRecordSkipped(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()

	assigned, err := svc.Apply(ctx, 1, Changeset{
		Groups: []GroupIn{{ClientID: 5, Entity: model.Group{Title: "mine"}}},
	})
	require.NoError(t, err)
	var serverID int64
	for sid := range assigned.Groups {
		serverID = sid
	}

	// другой пользователь не может перезаписать чужую группу
	_, err = svc.Apply(ctx, 2, Changeset{
		Groups: []GroupIn{{ClientID: 5, Entity: model.Group{ID: serverID, Title: "stolen"}}},
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, "mine", snap.Groups[0].Title)
}

func TestSyncService_Snapshot_ExcludesDeleted(t *testing.T) {
	svc, _ := newSyncService(t)
	ctx := context.Background()
	const userID = int64(1)

	assigned, err := svc.Apply(ctx, userID, Changeset{
		Groups: []GroupIn{{ClientID: 1, Entity: model.Group{Title: "keep"}},
			{ClientID: 2, Entity: model.Group{Title: "drop"}}},
	})
	require.NoError(t, err)

	var dropID int64
	for sid, cid := range assigned.Groups {
		if cid == 2 {
			dropID = sid
		}
	}
	require.NotZero(t, dropID)

	// надгробие: запись помечена удалённой и пропадает из снимка
	_, err = svc.Apply(ctx, userID, Changeset{
		Groups: []GroupIn{{ClientID: 2, Entity: model.Group{ID: dropID, Title: "drop", Deleted: true}}},
	})
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, userID)
	require.NoError(t, err)
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, "keep", snap.Groups[0].Title)
}
