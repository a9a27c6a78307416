package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"PassVault/internal/cli/common"

	_ "modernc.org/sqlite"
)

// SchemaVersion — единственная отметка версии схемы в таблице meta.
const SchemaVersion = "1"

const (
	openAttempts = 3
	openBackoff  = 150 * time.Millisecond
)

// Store — локальное хранилище (SQLite, один файл на device uuid).
// Мьютекс удерживается на время выполнения отдельного запроса, не дольше:
// отдельные чтения/записи атомарны, целый sync-раунд — нет.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open открывает (и при необходимости создаёт) файл хранилища для
// указанного устройства. Вторым значением возвращается путь к файлу.
// Транзиентная занятость файла обходится ограниченным числом повторов.
func Open(vaultDir, deviceUUID string) (*Store, string, error) {
	if deviceUUID == "" {
		return nil, "", fmt.Errorf("%w: empty device uuid", common.ErrConfig)
	}
	if err := os.MkdirAll(vaultDir, 0o700); err != nil {
		return nil, "", fmt.Errorf("%w: %v", common.ErrConfig, err)
	}
	dbPath := filepath.Join(vaultDir, deviceUUID+".db")

	var db *sql.DB
	var err error
	for attempt := 0; attempt < openAttempts; attempt++ {
		db, err = sql.Open("sqlite", dbPath)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			break
		}
		if !isBusy(err) {
			break
		}
		time.Sleep(openBackoff)
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: open vault: %v", common.ErrStorage, err)
	}
	return &Store{db: db}, dbPath, nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate гарантирует наличие таблиц и отметки версии схемы.
func (s *Store) Migrate() error {
	if _, err := s.Exec(initialDDL()); err != nil {
		return err
	}
	_, err := s.Exec(`INSERT OR IGNORE INTO meta(key, value) VALUES('schema_version', ?)`, SchemaVersion)
	return err
}

// Version читает отметку версии схемы из meta.
func (s *Store) Version() (string, error) {
	var v string
	err := s.queryRowScan(`SELECT value FROM meta WHERE key = 'schema_version'`, nil, &v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return v, nil
}

// Query выполняет SELECT. Курсор читается вызывающим уже без мьютекса.
func (s *Store) Query(query string, args ...any) (*sql.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return rows, nil
}

func (s *Store) queryRowScan(query string, args []any, dest ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.QueryRow(query, args...).Scan(dest...)
}

// QueryRowScan выполняет SELECT одной строки и сканирует её в dest.
func (s *Store) QueryRowScan(query string, args []any, dest ...any) error {
	err := s.queryRowScan(query, args, dest...)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return err
}

// Exec выполняет запрос без результата и возвращает число затронутых строк.
func (s *Store) Exec(query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return n, nil
}

// ExecInsert выполняет INSERT и возвращает присвоенный id.
func (s *Store) ExecInsert(query string, args ...any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return id, nil
}
