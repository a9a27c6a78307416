package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PassVault/internal/cli/api"
	"PassVault/internal/cli/common"
	"PassVault/internal/cli/crypto"
	"PassVault/internal/cli/model"
	"PassVault/internal/cli/session"
	"PassVault/internal/cli/syncer"
	"PassVault/internal/cli/tree"
	"PassVault/internal/config"

	"go.uber.org/zap"
)

// VaultService — операционная граница клиента: здесь мягкие отказы
// синхронизации превращаются в «данных нет» плюс строку лога, а наружу
// поднимаются только ошибки хранилища и конструирования.
type VaultService struct {
	sess *session.Session
	sync *syncer.Syncer
	log  *zap.SugaredLogger
	key  []byte // ключ шифрования значений полей
}

// Open создаёт сессию и синхронизатор. Ошибки конфигурации и занятый
// замок — фатальны и поднимаются сразу.
func Open(cfg *config.Config, log *zap.SugaredLogger) (*VaultService, error) {
	sess, err := session.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadOrCreateKey(cfg.VaultDir, cfg.DeviceUUID)
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("%w: vault key: %v", common.ErrConfig, err)
	}
	client := api.NewClient(cfg.ServerURL,
		time.Duration(cfg.ConnectTimeoutSec)*time.Second,
		time.Duration(cfg.RequestTimeoutSec)*time.Second)
	sy := syncer.New(sess.Vault, client, log, sess.User, sess.Device, cfg.ForceTimestamp)
	return &VaultService{sess: sess, sync: sy, log: log, key: key}, nil
}

// Session открывает доступ к идентичности текущей сессии.
func (s *VaultService) Session() *session.Session { return s.sess }

// Close завершает сессию (закрывает БД, затирает секрет, снимает замок).
func (s *VaultService) Close() error { return s.sess.Close() }

// Login запоминает учётные данные и выполняет pull. false означает
// «данных нет, попробуйте позже»; ошибка возвращается только для отказов
// хранилища, целостность которых не гарантируется.
func (s *VaultService) Login(ctx context.Context, email string, password []byte) (bool, error) {
	s.sess.SetCredentials(email, password)
	u, err := s.Pull(ctx)
	return u != nil, err
}

// Pull — граница операции: сеть/кодек/идентичность деградируют до (nil, nil).
func (s *VaultService) Pull(ctx context.Context) (*model.User, error) {
	u, err := s.sync.Pull(ctx)
	if err != nil {
		if errors.Is(err, common.ErrStorage) {
			return nil, err
		}
		s.log.Warnw("pull degraded to no data", "error", err)
		return nil, nil
	}
	if u != nil {
		s.sess.User.ID = u.ID
		s.sess.User.Name = u.Name
		s.sess.User.Status = u.Status
		s.sess.User.UpdatedAt = u.UpdatedAt
	}
	return u, nil
}

// Push — граница операции: мягкие отказы деградируют до false.
func (s *VaultService) Push(ctx context.Context) (bool, error) {
	ok, err := s.sync.Push(ctx)
	if err != nil {
		if errors.Is(err, common.ErrStorage) {
			return false, err
		}
		s.log.Warnw("push degraded to failure", "error", err)
		return false, nil
	}
	return ok, nil
}

// AddGroup создаёт локальную группу; parentID == 0 — корень.
func (s *VaultService) AddGroup(title string, parentID int64) (int64, error) {
	g := &model.Group{
		Meta:     model.Meta{UserID: s.sess.User.ID, CreatedAt: time.Now().Unix()},
		ParentID: parentID,
		Title:    title,
	}
	if parentID > 0 {
		parents, err := s.sess.Vault.Groups.GetAll(nil, false)
		if err != nil {
			return model.NoID, err
		}
		for _, p := range parents {
			if p.ID == parentID {
				g.ServerParentID = p.ServerID
				break
			}
		}
	}
	return s.sess.Vault.Groups.Persist(g, false)
}

// AddField шифрует значение и создаёт локальное поле в группе.
func (s *VaultService) AddField(groupID int64, title string, value []byte, hidden bool) (int64, error) {
	cipher, err := crypto.Encrypt(value, s.key)
	if err != nil {
		return model.NoID, err
	}
	f := &model.Field{
		Meta:    model.Meta{UserID: s.sess.User.ID, CreatedAt: time.Now().Unix()},
		GroupID: groupID,
		Title:   title,
		Value:   cipher,
		Hidden:  hidden,
	}
	return s.sess.Vault.Fields.Persist(f, false)
}

// RevealField возвращает расшифрованное значение поля по локальному id.
func (s *VaultService) RevealField(id int64) ([]byte, error) {
	fields, err := s.sess.Vault.Fields.GetAll(nil, false)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		if f.ID == id {
			return crypto.Decrypt(f.Value, s.key)
		}
	}
	return nil, fmt.Errorf("field %d not found", id)
}

// Tree собирает иерархический срез групп (обход по уровням).
func (s *VaultService) Tree() ([]*model.Group, *tree.Assembler, error) {
	groups, err := s.sess.Vault.Groups.GetAll(nil, false)
	if err != nil {
		return nil, nil, err
	}
	asm := tree.NewAssembler()
	for _, g := range groups {
		asm.Insert(g)
	}
	return asm.Snapshot(), asm, nil
}

// RemoveGroup ставит надгробия группе и её содержимому.
func (s *VaultService) RemoveGroup(id int64) error {
	if _, err := s.sess.Vault.Fields.SoftDeleteByParent(id); err != nil {
		return err
	}
	if _, err := s.sess.Vault.GroupFields.SoftDeleteByParent(id); err != nil {
		return err
	}
	_, err := s.sess.Vault.Groups.SoftDelete(id)
	return err
}

// RemoveField ставит надгробие полю.
func (s *VaultService) RemoveField(id int64) error {
	_, err := s.sess.Vault.Fields.SoftDelete(id)
	return err
}

// Purge физически удаляет подтверждённые сервером надгробия.
func (s *VaultService) Purge() error {
	for _, table := range []string{"fields", "group_fields", "groups"} {
		rows, err := s.sess.Vault.Store().Query(
			"SELECT id FROM " + table + " WHERE deleted = 1 AND synced = 1")
		if err != nil {
			return err
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		for _, id := range ids {
			var err error
			switch table {
			case "fields":
				_, err = s.sess.Vault.Fields.HardDelete(id)
			case "group_fields":
				_, err = s.sess.Vault.GroupFields.HardDelete(id)
			default:
				_, err = s.sess.Vault.Groups.HardDelete(id)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// SyncState возвращает состояние синхронизатора (для status).
func (s *VaultService) SyncState() syncer.State { return s.sync.State() }
