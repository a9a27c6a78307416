// Package session отвечает за монопольный доступ к локальному хранилищу
// и жизненный цикл секретов в памяти.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"PassVault/internal/cli/common"
	"PassVault/internal/cli/crypto"
	"PassVault/internal/cli/model"
	"PassVault/internal/cli/repo"
	"PassVault/internal/cli/store"
	"PassVault/internal/config"

	"go.uber.org/zap"
)

// lockExt — расширение файла-замка рядом с файлом хранилища.
const lockExt = ".lock"

// Session владеет открытым хранилищем, идентичностью устройства и
// секретом пользователя на время своей жизни.
type Session struct {
	Vault  *repo.Vault
	User   *model.User
	Device *model.Device

	cfg    *config.Config
	log    *zap.SugaredLogger
	store  *store.Store
	secret *crypto.Secret
	locked bool
}

// Open проверяет конфигурацию, захватывает замок хранилища и открывает БД.
// Если замок уже занят, возвращается ErrLockHeld с pid владельца.
func Open(cfg *config.Config, log *zap.SugaredLogger) (*Session, error) {
	if cfg.VaultDir == "" {
		return nil, fmt.Errorf("%w: empty vault dir", common.ErrConfig)
	}
	if cfg.DeviceUUID == "" {
		return nil, fmt.Errorf("%w: empty device uuid", common.ErrConfig)
	}

	s := &Session{cfg: cfg, log: log}

	if !cfg.DisableLock {
		if err := s.acquireLock(); err != nil {
			return nil, err
		}
	}

	st, _, err := store.Open(cfg.VaultDir, cfg.DeviceUUID)
	if err != nil {
		s.releaseLock()
		return nil, err
	}
	if err := st.Migrate(); err != nil {
		_ = st.Close()
		s.releaseLock()
		return nil, err
	}
	s.store = st
	s.Vault = repo.NewVault(st)

	// последняя известная идентичность; может отсутствовать до первого pull
	if u, err := s.Vault.Users.Load(); err == nil && u != nil {
		s.User = u
	}
	if d, err := s.Vault.Devices.Load(); err == nil && d != nil {
		s.Device = d
	} else {
		s.Device = &model.Device{UUID: cfg.DeviceUUID, Status: model.DeviceInactive}
	}
	if s.User == nil {
		s.User = &model.User{Status: model.UserNotActive}
	}
	return s, nil
}

func (s *Session) lockPath() string {
	return filepath.Join(s.cfg.VaultDir, s.cfg.DeviceUUID+lockExt)
}

// acquireLock создаёт файл-замок с pid владельца; существующий замок —
// фатальный отказ с указанием чужого pid.
func (s *Session) acquireLock() error {
	path := s.lockPath()
	if b, err := os.ReadFile(path); err == nil {
		pid := strings.TrimSpace(string(b))
		return fmt.Errorf("%w: pid %s", common.ErrLockHeld, pid)
	}
	if err := os.MkdirAll(s.cfg.VaultDir, 0o700); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfig, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: pid unknown", common.ErrLockHeld)
		}
		return fmt.Errorf("%w: create lock: %v", common.ErrConfig, err)
	}
	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: write lock", common.ErrConfig)
	}
	s.locked = true
	return nil
}

// releaseLock снимает замок. Отсутствие файла — внутреннее предупреждение,
// не ошибка.
func (s *Session) releaseLock() {
	if !s.locked {
		return
	}
	s.locked = false
	if err := os.Remove(s.lockPath()); err != nil {
		if os.IsNotExist(err) {
			s.log.Warnw("session: lock file already gone", "path", s.lockPath())
			return
		}
		s.log.Warnw("session: failed to remove lock", "path", s.lockPath(), "error", err)
	}
}

// SetCredentials запоминает учётные данные на время сессии.
// Пароль копируется во внутренний затираемый буфер.
func (s *Session) SetCredentials(email string, password []byte) {
	if s.secret != nil {
		s.secret.Wipe()
	}
	s.secret = crypto.NewSecret(password)
	s.User.Email = email
	s.User.Password = s.secret.Bytes()
}

// Close закрывает хранилище, затирает секрет и снимает замок.
func (s *Session) Close() error {
	var firstErr error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.log.Warnw("session: store close failed", "error", err)
			firstErr = err
		}
		s.store = nil
	}
	if s.secret != nil {
		s.secret.Wipe()
		s.secret = nil
	}
	if s.User != nil {
		s.User.Password = nil
	}
	s.releaseLock()
	return firstErr
}
