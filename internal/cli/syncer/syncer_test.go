package syncer

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PassVault/internal/cli/common"
	"PassVault/internal/cli/model"
	"PassVault/internal/cli/repo"
	"PassVault/internal/cli/store"

	"PassVault/internal/cli/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUUID = "dev-sync-test"

func testPublicKeyPEM(t *testing.T) string {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func newTestSyncer(t *testing.T, serverURL string) (*Syncer, *repo.Vault) {
	t.Helper()
	st, _, err := store.Open(t.TempDir(), testUUID)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate())
	v := repo.NewVault(st)

	user := &model.User{Email: "u@x", Password: []byte("pw"), Status: model.UserActive}
	device := &model.Device{ID: 7, UUID: testUUID, HostPublicKey: testPublicKeyPEM(t), Status: model.DeviceActive}

	client := api.NewClient(serverURL, time.Second, 5*time.Second)
	return New(v, client, zap.NewNop().Sugar(), user, device, 0), v
}

// envelope строит корректное wire-тело снимка для тестового сервера.
func envelope(uuid string, groups, groupFields, fields string) string {
	return fmt.Sprintf(`{
		"timestampLastUpdate": 1700000100,
		"user": {"id": 1, "email": "u@x", "status": "ACTIVE"},
		"device": {"id": 7, "uuid": %q, "status": "ACTIVE"},
		"groups": %s,
		"groupFields": %s,
		"fields": %s
	}`, uuid, groups, groupFields, fields)
}

func TestPull_AppliesSnapshot(t *testing.T) {
	groups := `[
		{"serverId": 101, "title": "root", "timestampCreation": 1700000000},
		{"serverId": 102, "serverGroupId": 101, "title": "child"}
	]`
	groupFields := `[{"serverId": 301, "serverGroupId": 101, "title": "pin", "isHidden": true}]`
	fields := `[{"serverId": 501, "serverGroupId": 102, "title": "password", "value": "Y2lwaGVy"}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(envelope(testUUID, groups, groupFields, fields)))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	u, err := s.Pull(context.Background())
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u@x", u.Email)
	assert.True(t, s.NetworkAvailable())
	assert.Equal(t, StateReady, s.State())

	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, gs, 2)
	byServer := map[int64]*model.Group{}
	for _, g := range gs {
		byServer[g.ServerID] = g
	}
	root, child := byServer[101], byServer[102]
	require.NotNil(t, root)
	require.NotNil(t, child)
	assert.Equal(t, root.ID, child.ParentID, "server parent link must map to local id")
	assert.True(t, root.Synced)

	fs, err := v.Fields.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, fs, 1)
	assert.Equal(t, child.ID, fs[0].GroupID)
	assert.Equal(t, []byte("cipher"), fs[0].Value)

	gfs, err := v.GroupFields.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, gfs, 1)
	assert.Equal(t, root.ID, gfs[0].GroupID)
	assert.True(t, gfs[0].Hidden)
}

func TestPull_IsIdempotent(t *testing.T) {
	groups := `[{"serverId": 101, "title": "root"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope(testUUID, groups, "[]", "[]")))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Pull(ctx)
	require.NoError(t, err)
	_, err = s.Pull(ctx)
	require.NoError(t, err)

	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Len(t, gs, 1, "re-applying the same snapshot must not duplicate rows")
}

func TestPull_MalformedPayloadLeavesStorageUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"groups": []}`))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	_, err := s.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrMalformedPayload)

	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Empty(t, gs)
}

func TestPull_DeviceMismatchMeansNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope("someone-else", `[{"serverId":1,"title":"x"}]`, "[]", "[]")))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	u, err := s.Pull(context.Background())
	require.NoError(t, err)
	assert.Nil(t, u)

	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Empty(t, gs, "foreign snapshot must not be applied")
}

func TestPull_ServerFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("ERR#601"))
	}))
	defer srv.Close()

	s, _ := newTestSyncer(t, srv.URL)
	_, err := s.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrServerFatal)
}

func TestPushRequiresPull(t *testing.T) {
	s, _ := newTestSyncer(t, "http://127.0.0.1:0")
	ok, err := s.Push(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
}

func TestPull_NetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	s, _ := newTestSyncer(t, srv.URL)
	_, err := s.Pull(context.Background())
	assert.ErrorIs(t, err, common.ErrNetworkUnavailable)
	assert.False(t, s.NetworkAvailable())
}

// TestPush_DeliversTombstones повторяет цикл удаления: pull снимка с группой,
// локальное удаление, push несёт надгробие, сервер его записывает, и запись
// не возвращается ни из push-ответа, ни из последующего pull.
func TestPush_DeliversTombstones(t *testing.T) {
	live := `[{"serverId": 101, "title": "web", "timestampCreation": 1700000000}]`
	serverDeleted := false

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var pushed struct {
				Groups []struct {
					ServerID *int64 `json:"serverId"`
					Deleted  bool   `json:"deleted"`
				} `json:"groups"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&pushed))
			for _, g := range pushed.Groups {
				if g.Deleted && g.ServerID != nil && *g.ServerID == 101 {
					serverDeleted = true
				}
			}
		}
		groups := live
		if serverDeleted {
			groups = "[]"
		}
		_, _ = w.Write([]byte(envelope(testUUID, groups, "[]", "[]")))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Pull(ctx)
	require.NoError(t, err)
	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, gs, 1)

	_, err = v.Groups.SoftDelete(gs[0].ID)
	require.NoError(t, err)

	ok, err := s.Push(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, serverDeleted, "tombstone must reach the server with its server id")

	// локально: живых нет, надгробие одно и уже подтверждено
	gs, err = v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Empty(t, gs, "deleted group must not come back as a live row")

	all, err := v.Groups.GetForSync(false)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Deleted)
	assert.True(t, all[0].Synced, "pushed tombstone must be confirmed")

	_, err = s.Pull(ctx)
	require.NoError(t, err)
	gs, err = v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Empty(t, gs)
}

// TestPull_DoesNotResurrectLocalTombstone: сервер ещё не знает об удалении
// и продолжает отдавать запись; pull не должен ни воскресить её, ни создать
// дубликат рядом с надгробием.
func TestPull_DoesNotResurrectLocalTombstone(t *testing.T) {
	live := `[{"serverId": 101, "title": "web"}]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(envelope(testUUID, live, "[]", "[]")))
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Pull(ctx)
	require.NoError(t, err)
	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, gs, 1)

	_, err = v.Groups.SoftDelete(gs[0].ID)
	require.NoError(t, err)

	_, err = s.Pull(ctx)
	require.NoError(t, err)

	gs, err = v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	assert.Empty(t, gs, "server copy must not resurrect a pending deletion")

	all, err := v.Groups.GetForSync(false)
	require.NoError(t, err)
	require.Len(t, all, 1, "no duplicate row next to the tombstone")
	assert.True(t, all[0].Deleted)
	assert.False(t, all[0].Synced, "deletion is still pending")
}

func TestErrorStatePersistsUntilNextRound(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("ERR#601"))
			return
		}
		_, _ = w.Write([]byte(envelope(testUUID, "[]", "[]", "[]")))
	}))
	defer srv.Close()

	s, _ := newTestSyncer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Pull(ctx)
	require.Error(t, err)
	assert.Equal(t, StateError, s.State(), "failed round must be observable")

	fail = false
	_, err = s.Pull(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateReady, s.State())
}

// TestPushRoundTrip повторяет полный цикл: pull пустого снимка, локальное
// создание, push и применение ответа с эхом клиентских id.
func TestPushRoundTrip(t *testing.T) {
	var pushed struct {
		Groups []struct {
			ID       *int64 `json:"id"`
			ServerID *int64 `json:"serverId"`
			Title    string `json:"title"`
		} `json:"groups"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(envelope(testUUID, "[]", "[]", "[]")))
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&pushed); err != nil || len(pushed.Groups) != 1 || pushed.Groups[0].ID == nil {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte("ERR#463"))
				return
			}
			assert.Nil(t, pushed.Groups[0].ServerID, "new row must not carry a server id")
			// сервер присваивает serverId и возвращает эхо клиентского id
			resp := fmt.Sprintf(`[{"id": %d, "serverId": 201, "title": %q}]`,
				*pushed.Groups[0].ID, pushed.Groups[0].Title)
			_, _ = w.Write([]byte(envelope(testUUID, resp, "[]", "[]")))
		}
	}))
	defer srv.Close()

	s, v := newTestSyncer(t, srv.URL)
	ctx := context.Background()

	_, err := s.Pull(ctx)
	require.NoError(t, err)

	g := &model.Group{Title: "local"}
	_, err = v.Groups.Persist(g, false)
	require.NoError(t, err)

	ok, err := s.Push(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	gs, err := v.Groups.GetAll(nil, false)
	require.NoError(t, err)
	require.Len(t, gs, 1, "echoed row must update in place, not duplicate")
	assert.Equal(t, g.ID, gs[0].ID)
	assert.Equal(t, int64(201), gs[0].ServerID)
	assert.True(t, gs[0].Synced)
}
