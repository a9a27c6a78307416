package repo

import (
	"context"

	"PassVault/internal/model"

	"gorm.io/gorm"
)

// VaultRepository — доступ к трём синхронизируемым видам записей
// пользователя. Снимки не включают удалённые строки: клиент, получивший
// подтверждение удаления, вычищает свои надгробия сам.
type VaultRepository interface {
	Groups(ctx context.Context, userID int64) ([]model.Group, error)
	GroupFields(ctx context.Context, userID int64) ([]model.GroupField, error)
	Fields(ctx context.Context, userID int64) ([]model.Field, error)

	GetGroup(ctx context.Context, userID, id int64) (*model.Group, error)
	GetGroupField(ctx context.Context, userID, id int64) (*model.GroupField, error)
	GetField(ctx context.Context, userID, id int64) (*model.Field, error)

	// Save* вставляют запись при нулевом id и обновляют при ненулевом.
	SaveGroup(ctx context.Context, g *model.Group) error
	SaveGroupField(ctx context.Context, f *model.GroupField) error
	SaveField(ctx context.Context, f *model.Field) error
}

type vaultRepo struct {
	db *gorm.DB
}

// NewVaultRepository создаёт реализацию репозитория записей хранилища.
func NewVaultRepository(db *gorm.DB) VaultRepository {
	return &vaultRepo{db: db}
}

func (r *vaultRepo) Groups(ctx context.Context, userID int64) ([]model.Group, error) {
	var out []model.Group
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("parent_id, id").
		Find(&out).Error
	return out, err
}

func (r *vaultRepo) GroupFields(ctx context.Context, userID int64) ([]model.GroupField, error) {
	var out []model.GroupField
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("group_id, id").
		Find(&out).Error
	return out, err
}

func (r *vaultRepo) Fields(ctx context.Context, userID int64) ([]model.Field, error) {
	var out []model.Field
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", userID, false).
		Order("group_id, id").
		Find(&out).Error
	return out, err
}

func (r *vaultRepo) GetGroup(ctx context.Context, userID, id int64) (*model.Group, error) {
	var g model.Group
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&g, id).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *vaultRepo) GetGroupField(ctx context.Context, userID, id int64) (*model.GroupField, error) {
	var f model.GroupField
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *vaultRepo) GetField(ctx context.Context, userID, id int64) (*model.Field, error) {
	var f model.Field
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&f, id).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *vaultRepo) SaveGroup(ctx context.Context, g *model.Group) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *vaultRepo) SaveGroupField(ctx context.Context, f *model.GroupField) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *vaultRepo) SaveField(ctx context.Context, f *model.Field) error {
	return r.db.WithContext(ctx).Save(f).Error
}
