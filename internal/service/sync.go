package service

import (
	"context"
	"errors"

	"PassVault/internal/model"
	"PassVault/internal/repo"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GroupIn — входящая группа вместе с локальными (клиентскими) id,
// по которым клиент узнает свои строки в ответном снимке.
type GroupIn struct {
	ClientID       int64
	ClientParentID int64
	Entity         model.Group
}

// GroupFieldIn — входящий шаблон поля.
type GroupFieldIn struct {
	ClientID      int64
	ClientGroupID int64
	Entity        model.GroupField
}

// FieldIn — входящее значение поля.
type FieldIn struct {
	ClientID           int64
	ClientGroupID      int64
	ClientGroupFieldID int64
	Entity             model.Field
}

// Changeset — разобранное содержимое push-запроса одного устройства.
type Changeset struct {
	Groups      []GroupIn
	GroupFields []GroupFieldIn
	Fields      []FieldIn
}

// Assigned сопоставляет присвоенные серверные id клиентским. Эхо нужно
// только в ответе на тот push, который создал строки: по нему клиент
// находит свою локальную запись и дописывает ей серверный id.
type Assigned struct {
	Groups      map[int64]int64
	GroupFields map[int64]int64
	Fields      map[int64]int64
}

// Snapshot — авторитетное состояние хранилища пользователя.
type Snapshot struct {
	Groups      []model.Group
	GroupFields []model.GroupField
	Fields      []model.Field
}

// SyncService применяет изменения устройств и собирает снимки.
type SyncService struct {
	vault repo.VaultRepository
	log   *zap.SugaredLogger
}

func NewSyncService(vault repo.VaultRepository, log *zap.SugaredLogger) *SyncService {
	return &SyncService{vault: vault, log: log}
}

// Snapshot возвращает все живые записи пользователя.
func (s *SyncService) Snapshot(ctx context.Context, userID int64) (*Snapshot, error) {
	groups, err := s.vault.Groups(ctx, userID)
	if err != nil {
		return nil, err
	}
	groupFields, err := s.vault.GroupFields(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields, err := s.vault.Fields(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Groups: groups, GroupFields: groupFields, Fields: fields}, nil
}

// Apply записывает изменения устройства. Группы идут первыми: новые
// получают серверные id, и по карте клиентский id -> серверный id
// дорезолвливаются родительские ссылки остальных записей, у которых
// клиент ещё не знал серверного id родителя.
func (s *SyncService) Apply(ctx context.Context, userID int64, cs Changeset) (*Assigned, error) {
	assigned := &Assigned{
		Groups:      make(map[int64]int64),
		GroupFields: make(map[int64]int64),
		Fields:      make(map[int64]int64),
	}

	groupByClient := make(map[int64]int64) // клиентский id -> серверный id
	for i := range cs.Groups {
		in := &cs.Groups[i]
		saved, err := s.applyGroup(ctx, userID, in)
		if err != nil {
			return nil, err
		}
		if saved == nil {
			continue
		}
		if in.ClientID > 0 {
			groupByClient[in.ClientID] = saved.ID
			assigned.Groups[saved.ID] = in.ClientID
		}
	}

	// второй проход: родитель мог идти в срезе после потомка
	for i := range cs.Groups {
		in := &cs.Groups[i]
		if in.Entity.ParentID > 0 || in.ClientParentID <= 0 {
			continue
		}
		sid, ok := groupByClient[in.ClientParentID]
		if !ok {
			continue
		}
		selfID := in.Entity.ID
		if selfID == 0 {
			selfID = groupByClient[in.ClientID]
		}
		if selfID == 0 {
			continue
		}
		g, err := s.vault.GetGroup(ctx, userID, selfID)
		if err != nil {
			return nil, err
		}
		g.ParentID = sid
		if err := s.vault.SaveGroup(ctx, g); err != nil {
			return nil, err
		}
	}

	fieldByClient := make(map[int64]int64)
	for i := range cs.GroupFields {
		in := &cs.GroupFields[i]
		if in.Entity.GroupID == 0 && in.ClientGroupID > 0 {
			in.Entity.GroupID = groupByClient[in.ClientGroupID]
		}
		saved, err := s.applyGroupField(ctx, userID, in)
		if err != nil {
			return nil, err
		}
		if saved == nil {
			continue
		}
		if in.ClientID > 0 {
			fieldByClient[in.ClientID] = saved.ID
			assigned.GroupFields[saved.ID] = in.ClientID
		}
	}

	for i := range cs.Fields {
		in := &cs.Fields[i]
		if in.Entity.GroupID == 0 && in.ClientGroupID > 0 {
			in.Entity.GroupID = groupByClient[in.ClientGroupID]
		}
		if in.Entity.GroupFieldID == 0 && in.ClientGroupFieldID > 0 {
			in.Entity.GroupFieldID = fieldByClient[in.ClientGroupFieldID]
		}
		saved, err := s.applyField(ctx, userID, in)
		if err != nil {
			return nil, err
		}
		if saved != nil && in.ClientID > 0 {
			assigned.Fields[saved.ID] = in.ClientID
		}
	}

	return assigned, nil
}

func (s *SyncService) applyGroup(ctx context.Context, userID int64, in *GroupIn) (*model.Group, error) {
	e := in.Entity
	if e.ID > 0 {
		existing, err := s.vault.GetGroup(ctx, userID, e.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warnw("push references unknown group", "user_id", userID, "id", e.ID)
				return nil, nil
			}
			return nil, err
		}
		existing.ParentID = e.ParentID
		existing.Title = e.Title
		existing.Icon = e.Icon
		existing.Note = e.Note
		existing.Deleted = e.Deleted
		if err := s.vault.SaveGroup(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	e.UserID = userID
	if err := s.vault.SaveGroup(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SyncService) applyGroupField(ctx context.Context, userID int64, in *GroupFieldIn) (*model.GroupField, error) {
	e := in.Entity
	if e.ID > 0 {
		existing, err := s.vault.GetGroupField(ctx, userID, e.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warnw("push references unknown group field", "user_id", userID, "id", e.ID)
				return nil, nil
			}
			return nil, err
		}
		existing.GroupID = e.GroupID
		existing.Title = e.Title
		existing.Hidden = e.Hidden
		existing.Deleted = e.Deleted
		if err := s.vault.SaveGroupField(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	e.UserID = userID
	if err := s.vault.SaveGroupField(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SyncService) applyField(ctx context.Context, userID int64, in *FieldIn) (*model.Field, error) {
	e := in.Entity
	if e.ID > 0 {
		existing, err := s.vault.GetField(ctx, userID, e.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warnw("push references unknown field", "user_id", userID, "id", e.ID)
				return nil, nil
			}
			return nil, err
		}
		existing.GroupID = e.GroupID
		existing.GroupFieldID = e.GroupFieldID
		existing.Title = e.Title
		existing.Value = e.Value
		existing.Hidden = e.Hidden
		existing.Deleted = e.Deleted
		if err := s.vault.SaveField(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	e.UserID = userID
	if err := s.vault.SaveField(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
