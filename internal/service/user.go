package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"PassVault/internal/model"
	"PassVault/internal/repo"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrLoginTaken — email уже занят другим пользователем.
var ErrLoginTaken = errors.New("login already taken")

// ErrBadCredentials — неверная пара email/пароль.
var ErrBadCredentials = errors.New("invalid credentials")

// UserService инкапсулирует регистрацию и проверку учётных данных.
type UserService struct {
	repo repo.UserRepository
}

func NewUserService(r repo.UserRepository) *UserService {
	return &UserService{repo: r}
}

// Register создаёт пользователя. Пароль хранится как bcrypt-хеш;
// отдельно сохраняется digest для проверки pull-токенов синхронизации.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*model.User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrLoginTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:       name,
		Email:      email,
		Password:   string(hash),
		SyncDigest: SyncDigest(email, password),
		Status:     model.UserActive,
	}
	return s.repo.CreateUser(ctx, u)
}

// Login проверяет пароль и возвращает пользователя.
func (s *UserService) Login(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// GetByID возвращает пользователя по id.
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// VerifyDigest сравнивает digest из pull-токена с сохранённым.
func (s *UserService) VerifyDigest(u *model.User, digest string) bool {
	return subtle.ConstantTimeCompare([]byte(u.SyncDigest), []byte(digest)) == 1
}

// SyncDigest считает SHA-256(email:password) в hex. Тем же digest
// клиент подписывает pull-токен.
func SyncDigest(email, password string) string {
	sum := sha256.Sum256([]byte(email + ":" + password))
	return hex.EncodeToString(sum[:])
}
