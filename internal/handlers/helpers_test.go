package handlers_test

import (
	"PassVault/internal/config"
	"PassVault/internal/handlers"
	"PassVault/internal/middleware"
	"PassVault/internal/model"
	"PassVault/internal/repo"
	"PassVault/internal/service"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// мок для repo.UserRepository (тесты ручек user идут через мок,
// остальные сервисы в этих тестах не трогаются)
type mockUserRepo struct {
	users  map[string]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: map[string]*model.User{}, nextID: 1}
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	user.ID = m.nextID
	m.nextID++
	m.users[user.Email] = user
	return user, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if u, ok := m.users[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

var _ repo.UserRepository = (*mockUserRepo)(nil)

var handlersDBSeq atomic.Int64

func newHandlersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers%d?mode=memory&cache=shared", handlersDBSeq.Add(1))
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Device{}, &model.Group{}, &model.GroupField{}, &model.Field{}))
	return db
}

// testEnv собирает полный стек сервера поверх in-memory SQLite.
type testEnv struct {
	Router  http.Handler
	Config  *config.Config
	Users   *service.UserService
	Devices *service.DeviceService
	Sync    *service.SyncService
	Tokens  *service.TokenDecoder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{AuthSecret: "test-secret"}
	logger := zap.NewNop().Sugar()
	db := newHandlersTestDB(t)

	tokens, err := service.NewTokenDecoder(filepath.Join(t.TempDir(), "key.pem"))
	require.NoError(t, err)

	users := service.NewUserService(repo.NewUserRepository(db))
	devices := service.NewDeviceService(repo.NewDeviceRepository(db))
	syncSvc := service.NewSyncService(repo.NewVaultRepository(db), logger)

	h := handlers.NewHandler(users, devices, syncSvc, tokens, logger, cfg)
	return &testEnv{Router: h.Router, Config: cfg, Users: users, Devices: devices, Sync: syncSvc, Tokens: tokens}
}

// newUserTestRouter собирает роутер с моком пользователей — для тестов
// ручек register/login/test, где БД не нужна.
func newUserTestRouter(t *testing.T, ur repo.UserRepository) http.Handler {
	t.Helper()
	cfg := &config.Config{AuthSecret: "test-secret"}
	logger := zap.NewNop().Sugar()
	db := newHandlersTestDB(t)

	tokens, err := service.NewTokenDecoder(filepath.Join(t.TempDir(), "key.pem"))
	require.NoError(t, err)

	h := handlers.NewHandler(
		service.NewUserService(ur),
		service.NewDeviceService(repo.NewDeviceRepository(db)),
		service.NewSyncService(repo.NewVaultRepository(db), logger),
		tokens, logger, cfg)
	return h.Router
}

func addAuthCookie(t *testing.T, req *http.Request, userID int64, secret string) {
	t.Helper()
	rr := httptest.NewRecorder()
	require.NoError(t, middleware.SetLoginCookie(rr, userID, secret))
	for _, c := range rr.Result().Cookies() {
		req.AddCookie(c)
	}
}

// makeToken шифрует sync-токен открытым ключом сервера, как это делает
// клиент при сборке пути /api/v5/{uuid}/{token}.
func makeToken(t *testing.T, tokens *service.TokenDecoder, tok service.SyncToken) string {
	t.Helper()
	block, _ := pem.Decode([]byte(tokens.PublicKeyPEM()))
	require.NotNil(t, block)
	anyKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	require.NoError(t, err)
	pub, ok := anyKey.(*rsa.PublicKey)
	require.True(t, ok)

	plain, err := json.Marshal(tok)
	require.NoError(t, err)
	enc, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, plain, nil)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(enc)
}
