package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PassVault/internal/cli/common"
	"PassVault/internal/cli/crypto"
)

// APIVersion — фиксированный префикс пути sync-протокола.
const APIVersion = "/api/v5"

// errSentinel — префикс тела ответа, кодирующего статус внутри текста.
// Коды >= 600 сервер использует для "фатально у меня, данных не будет".
const errSentinel = "ERR#"

// Client — тонкая обёртка над net/http c раздельными таймаутами соединения
// и запроса. Сетевые ошибки не ретраятся: политика повторов — забота вызывающего.
type Client struct {
	http       *http.Client
	baseURL    string
	lastStatus int
}

// NewClient создаёт клиент для указанного base URL.
func NewClient(baseURL string, connectTimeout, requestTimeout time.Duration) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &Client{
		http:    &http.Client{Transport: transport, Timeout: requestTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SyncURL строит путь sync-протокола: {host}{APIVersion}/{device_uuid}/{token}.
func (c *Client) SyncURL(deviceUUID, token string) string {
	return c.baseURL + APIVersion + "/" + deviceUUID + "/" + token
}

// LastStatus возвращает HTTP-статус последнего выполненного запроса.
func (c *Client) LastStatus() int { return c.lastStatus }

// Perform выполняет запрос и возвращает текст ответа.
// Недоступность сети — ErrNetworkUnavailable; sentinel-тело с кодом >= 600 —
// ErrServerFatal (вызывающий трактует как "данных нет"), меньшие коды —
// обычная ошибка с кодом в тексте.
func (c *Client) Perform(ctx context.Context, method, url string, body []byte) (string, error) {
	var reader io.Reader
	if body != nil {
		reader = strings.NewReader(string(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()
	c.lastStatus = resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", common.ErrNetworkUnavailable, err)
	}
	text := string(raw)

	if strings.HasPrefix(text, errSentinel) {
		code := parseSentinelCode(text)
		if code >= 600 {
			return "", fmt.Errorf("%w: code %d", common.ErrServerFatal, code)
		}
		return "", fmt.Errorf("server error %d: %s", code, strings.TrimSpace(text))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(text))
	}
	return text, nil
}

// parseSentinelCode достаёт код из тела вида "ERR#604: ...".
func parseSentinelCode(text string) int {
	rest := strings.TrimPrefix(text, errSentinel)
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	code, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return code
}

// Token — содержимое аутентификационного токена до шифрования.
// Для pull в Credentials кладётся дайджест учётных данных,
// для push вместо него взводится признак Push.
type Token struct {
	DeviceID    int64  `json:"deviceId"`
	Secret      string `json:"secret"`
	Timestamp   int64  `json:"timestamp"`
	Credentials string `json:"credentials,omitempty"`
	Push        bool   `json:"push,omitempty"`
}

// BuildToken шифрует токен открытым ключом устройства (RSA-OAEP)
// и кодирует base64url для вставки в путь запроса.
func BuildToken(t Token, publicKeyPEM string) (string, error) {
	plain, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	pub, err := crypto.ParsePublicKey([]byte(publicKeyPEM))
	if err != nil {
		return "", err
	}
	enc, err := crypto.EncryptWithPublicKey(plain, pub)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(enc), nil
}
