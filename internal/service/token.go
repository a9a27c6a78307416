package service

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const tokenKeyBits = 2048

// SyncToken — расшифрованное содержимое токена из пути запроса.
// Поля повторяют то, что клиент кладёт перед шифрованием.
type SyncToken struct {
	DeviceID    int64  `json:"deviceId"`
	Secret      string `json:"secret"`
	Timestamp   int64  `json:"timestamp"`
	Credentials string `json:"credentials,omitempty"`
	Push        bool   `json:"push,omitempty"`
}

// TokenDecoder держит серверную пару RSA-ключей. Открытый ключ уходит
// клиенту при регистрации устройства, закрытым расшифровываются токены.
type TokenDecoder struct {
	priv *rsa.PrivateKey
	pub  string
}

// NewTokenDecoder загружает закрытый ключ из файла; при первом запуске
// генерирует пару и сохраняет её в PEM.
func NewTokenDecoder(path string) (*TokenDecoder, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		priv, perr := parsePrivateKey(raw)
		if perr != nil {
			return nil, perr
		}
		return newDecoder(priv)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	priv, err := rsa.GenerateKey(rand.Reader, tokenKeyBits)
	if err != nil {
		return nil, err
	}
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)}
	if err := os.WriteFile(path, pem.EncodeToMemory(block), 0o600); err != nil {
		return nil, err
	}
	return newDecoder(priv)
}

func newDecoder(priv *rsa.PrivateKey) (*TokenDecoder, error) {
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return &TokenDecoder{priv: priv, pub: string(pubPEM)}, nil
}

func parsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block in private key file")
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k, nil
	}
	any, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("unsupported private key: %w", err)
	}
	rsaKey, ok := any.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not RSA")
	}
	return rsaKey, nil
}

// PublicKeyPEM возвращает открытый ключ в PEM для выдачи устройствам.
func (d *TokenDecoder) PublicKeyPEM() string {
	return d.pub
}

// Decode расшифровывает токен из пути запроса: base64url, затем
// RSA-OAEP (SHA-256), затем JSON.
func (d *TokenDecoder) Decode(encoded string) (*SyncToken, error) {
	enc, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("token base64: %w", err)
	}
	plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, d.priv, enc, nil)
	if err != nil {
		return nil, fmt.Errorf("token decrypt: %w", err)
	}
	var t SyncToken
	if err := json.Unmarshal(plain, &t); err != nil {
		return nil, fmt.Errorf("token payload: %w", err)
	}
	if t.DeviceID <= 0 || t.Secret == "" {
		return nil, errors.New("token payload incomplete")
	}
	return &t, nil
}
