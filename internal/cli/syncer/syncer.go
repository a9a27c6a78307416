// Package syncer — оркестратор синхронизации: решает, что отправить,
// отправляет, принимает авторитетный срез, сводит идентификаторы и
// обновляет локальное хранилище.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"PassVault/internal/cli/api"
	"PassVault/internal/cli/codec"
	"PassVault/internal/cli/common"
	"PassVault/internal/cli/crypto"
	"PassVault/internal/cli/model"
	"PassVault/internal/cli/repo"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State — состояние раунда синхронизации.
type State int32

const (
	StateReady State = iota
	StatePulling
	StatePushing
	StateReconciling
	// StateError держится до начала следующего раунда.
	StateError
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "READY"
	case StatePulling:
		return "PULLING"
	case StatePushing:
		return "PUSHING"
	case StateReconciling:
		return "RECONCILING"
	default:
		return "ERROR"
	}
}

// workerPool — размер пула коротких независимых задач раунда
// (кодек по коллекциям, сбор идентификаторов, сетевой вызов).
const workerPool = 4

// Syncer выполняет pull/push строго последовательно в рамках сессии.
// Секрет сессии и идентичность владеет сессия; здесь — только ссылки.
type Syncer struct {
	vault  *repo.Vault
	client *api.Client
	log    *zap.SugaredLogger

	user   *model.User
	device *model.Device

	forceTimestamp int64 // подмена timestampLastUpdate; 0 = выключено

	secret string // секрет раунда; генерируется один раз на сессию
	netOK  atomic.Bool
	state  atomic.Int32
}

// New создаёт синхронизатор для открытой сессии.
func New(vault *repo.Vault, client *api.Client, log *zap.SugaredLogger,
	user *model.User, device *model.Device, forceTimestamp int64) *Syncer {
	return &Syncer{
		vault:          vault,
		client:         client,
		log:            log,
		user:           user,
		device:         device,
		forceTimestamp: forceTimestamp,
	}
}

// State возвращает текущее состояние.
func (s *Syncer) State() State { return State(s.state.Load()) }

// NetworkAvailable сообщает, была ли сеть доступна в последнем pull.
func (s *Syncer) NetworkAvailable() bool { return s.netOK.Load() }

func (s *Syncer) setState(v State) { s.state.Store(int32(v)) }

// sessionSecret лениво генерирует случайный секрет сессии.
func (s *Syncer) sessionSecret() string {
	if s.secret == "" {
		s.secret = uuid.NewString()
	}
	return s.secret
}

func (s *Syncer) timestamp() int64 {
	if s.forceTimestamp > 0 {
		return s.forceTimestamp
	}
	return time.Now().Unix()
}

func (s *Syncer) buildToken(push bool) (string, error) {
	t := api.Token{
		DeviceID:  s.device.ID,
		Secret:    s.sessionSecret(),
		Timestamp: time.Now().Unix(),
	}
	if push {
		t.Push = true
	} else {
		t.Credentials = crypto.DigestHex(append([]byte(s.user.Email+":"), s.user.Password...))
	}
	return api.BuildToken(t, s.device.HostPublicKey)
}

// Pull запрашивает у сервера авторитетный срез и применяет его локально.
// Мягкие отказы возвращаются типизированными ошибками (common.Err*);
// несовпадение идентичности устройства — это «данных нет», (nil, nil).
func (s *Syncer) Pull(ctx context.Context) (*model.User, error) {
	s.setState(StatePulling)

	var mapping *Mapping
	var body string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerPool)
	g.Go(func() error {
		m, err := BuildMapping(s.vault, ScopeFull)
		if err != nil {
			return err
		}
		mapping = m
		return nil
	})
	g.Go(func() error {
		token, err := s.buildToken(false)
		if err != nil {
			return err
		}
		text, err := s.client.Perform(gctx, http.MethodGet, s.client.SyncURL(s.device.UUID, token), nil)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, common.ErrNetworkUnavailable) {
			// ранее загруженное состояние в памяти не разрушаем
			s.netOK.Store(false)
		}
		s.setState(StateError)
		return nil, err
	}
	s.netOK.Store(true)

	u, err := s.apply(ctx, []byte(body), mapping)
	if err != nil {
		s.setState(StateError)
		return nil, err
	}
	s.setState(StateReady)
	return u, nil
}

// Push отправляет все локальные изменения и применяет ответ сервера.
// Требует успешного pull в этой же сессии; иначе отказ без сетевого вызова.
func (s *Syncer) Push(ctx context.Context) (bool, error) {
	if !s.netOK.Load() {
		return false, fmt.Errorf("%w: no successful pull in this session", common.ErrNetworkUnavailable)
	}
	s.setState(StatePushing)

	var mapping *Mapping
	var body string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerPool)
	g.Go(func() error {
		m, err := BuildMapping(s.vault, ScopePending)
		if err != nil {
			return err
		}
		mapping = m
		return nil
	})
	g.Go(func() error {
		payload, err := s.collectPending(gctx)
		if err != nil {
			return err
		}
		token, err := s.buildToken(true)
		if err != nil {
			return err
		}
		text, err := s.client.Perform(gctx, http.MethodPost, s.client.SyncURL(s.device.UUID, token), payload)
		if err != nil {
			return err
		}
		body = text
		return nil
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, common.ErrNetworkUnavailable) {
			s.netOK.Store(false)
		}
		s.setState(StateError)
		return false, err
	}

	if _, err := s.apply(ctx, []byte(body), mapping); err != nil {
		s.setState(StateError)
		return false, err
	}

	// Сервер записал удаления этого раунда: подтверждаем надгробия,
	// открывая им дорогу к физической очистке.
	if err := s.confirmTombstones(); err != nil {
		s.setState(StateError)
		return false, err
	}
	s.setState(StateReady)
	return true, nil
}

func (s *Syncer) confirmTombstones() error {
	if _, err := s.vault.Groups.MarkTombstonesSynced(); err != nil {
		return err
	}
	if _, err := s.vault.GroupFields.MarkTombstonesSynced(); err != nil {
		return err
	}
	_, err := s.vault.Fields.MarkTombstonesSynced()
	return err
}

// collectPending собирает неотправленные записи всех трёх видов, включая
// надгробия, и сериализует их по коллекциям параллельно.
func (s *Syncer) collectPending(ctx context.Context) ([]byte, error) {
	var groupsRaw, groupFieldsRaw, fieldsRaw, userRaw, deviceRaw []byte

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerPool)
	g.Go(func() error {
		rows, err := s.vault.Groups.GetForSync(true)
		if err != nil {
			return err
		}
		groupsRaw, err = codec.EncodeGroups(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.vault.GroupFields.GetForSync(true)
		if err != nil {
			return err
		}
		groupFieldsRaw, err = codec.EncodeGroupFields(rows)
		return err
	})
	g.Go(func() error {
		rows, err := s.vault.Fields.GetForSync(true)
		if err != nil {
			return err
		}
		fieldsRaw, err = codec.EncodeFields(rows)
		return err
	})
	g.Go(func() error {
		var err error
		userRaw, deviceRaw, err = codec.EncodeIdentity(s.user, s.device)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return codec.Assemble(s.timestamp(), userRaw, deviceRaw, groupsRaw, groupFieldsRaw, fieldsRaw)
}

// apply декодирует ответ сервера, сверяет идентичность устройства,
// записывает все три вида и запускает сведение серверных ссылок.
func (s *Syncer) apply(ctx context.Context, raw []byte, mapping *Mapping) (*model.User, error) {
	payload, err := codec.Split(raw)
	if err != nil {
		return nil, err
	}

	var (
		user        *model.User
		device      *model.Device
		groups      []*model.Group
		groupFields []*model.GroupField
		fields      []*model.Field
	)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workerPool)
	g.Go(func() error {
		var err error
		user, device, err = payload.DecodeIdentity()
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = payload.DecodeGroups()
		return err
	})
	g.Go(func() error {
		var err error
		groupFields, err = payload.DecodeGroupFields()
		return err
	})
	g.Go(func() error {
		var err error
		fields, err = payload.DecodeFields()
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if device.UUID != s.device.UUID {
		// чужое устройство: считаем, что данных нет
		s.log.Warnw("sync: device identity mismatch", "got", device.UUID, "want", s.device.UUID)
		return nil, nil
	}

	s.setState(StateReconciling)

	// Частично записанные виды не откатываются: атомарность раунда не
	// гарантируется, отказ любого вида делает раунд неуспешным целиком.

	// Группы идут первыми: их свежеприсвоенные локальные id нужны для
	// родительских ссылок остальных видов в этом же срезе.
	groupIDs := cloneMap(mapping.Groups)
	if err := applyBatch(s.vault.Groups, groups, mapping.Groups, mapping.DeadGroups, groupIDs, nil); err != nil {
		return nil, err
	}
	// второй проход: родитель группы мог появиться в срезе позже неё
	for _, g2 := range groups {
		if mapping.DeadGroups[g2.ServerID] {
			continue
		}
		if g2.ServerParentID > 0 {
			if lid, ok := groupIDs[g2.ServerParentID]; ok && g2.ParentID != lid {
				g2.ParentID = lid
				if _, err := s.vault.Groups.Persist(g2, true); err != nil {
					return nil, err
				}
			}
		}
	}

	groupFieldIDs := cloneMap(mapping.GroupFields)
	if err := applyBatch(s.vault.GroupFields, groupFields, mapping.GroupFields, mapping.DeadGroupFields, groupFieldIDs,
		func(f *model.GroupField) {
			if f.ServerGroupID > 0 {
				if lid, ok := groupIDs[f.ServerGroupID]; ok {
					f.GroupID = lid
				}
			}
		}); err != nil {
		return nil, err
	}
	if err := applyBatch(s.vault.Fields, fields, mapping.Fields, mapping.DeadFields, nil, func(f *model.Field) {
		if f.ServerGroupID > 0 {
			if lid, ok := groupIDs[f.ServerGroupID]; ok {
				f.GroupID = lid
			}
		}
		if f.ServerGroupFieldID > 0 {
			if lid, ok := groupFieldIDs[f.ServerGroupFieldID]; ok {
				f.GroupFieldID = lid
			}
		}
	}); err != nil {
		return nil, err
	}

	if err := s.vault.Reconcile(); err != nil {
		return nil, err
	}

	if err := s.vault.Users.Save(user); err != nil {
		return nil, err
	}
	device.ID = s.device.ID
	if err := s.vault.Devices.Save(device); err != nil {
		return nil, err
	}
	s.log.Infow("sync: applied server snapshot",
		"groups", len(groups), "groupFields", len(groupFields), "fields", len(fields))
	return user, nil
}

// applyBatch записывает входящий срез одного вида. Локальный id берётся из
// таблицы соответствий; если сервер прислал незнакомый серверный id, в поле id
// ответа стоит эхо локального id этого же устройства (ответ на только что
// отправленный push). Обновление, не нашедшее строку, превращается во вставку:
// так свежая копия хранилища наполняется с нуля теми же снимками.
// Записи с серверным id из dead пропускаются: локальное надгробие ещё не
// отправлено, и серверная копия не должна его воскресить.
func applyBatch[T model.Synchronizable](g *repo.Gateway[T], batch []T, m map[int64]int64, dead map[int64]bool, assigned map[int64]int64, fix func(T)) error {
	for _, e := range batch {
		if e.RemoteID() > 0 && dead[e.RemoteID()] {
			continue
		}
		if e.RemoteID() > 0 {
			if localID, ok := m[e.RemoteID()]; ok {
				e.SetLocalID(localID)
			}
		}
		if fix != nil {
			fix(e)
		}
		if e.LocalID() > 0 {
			n, err := g.Persist(e, true)
			if err != nil {
				return err
			}
			if n == 0 {
				e.SetLocalID(0)
				if _, err := g.Persist(e, false); err != nil {
					return err
				}
			}
		} else {
			if _, err := g.Persist(e, false); err != nil {
				return err
			}
		}
		if assigned != nil && e.RemoteID() > 0 {
			assigned[e.RemoteID()] = e.LocalID()
		}
	}
	return nil
}

func cloneMap(src map[int64]int64) map[int64]int64 {
	dst := make(map[int64]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
