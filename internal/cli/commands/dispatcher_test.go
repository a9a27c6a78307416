package commands

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"PassVault/internal/config"
)

// fakeCmd позволяет управлять возвратом ошибок из Run
type fakeCmd struct {
	name, usage, desc string
	run               func(ctx context.Context, cfg *config.Config, args []string) error
}

func (f fakeCmd) Name() string        { return f.name }
func (f fakeCmd) Description() string { return f.desc }
func (f fakeCmd) Usage() string       { return f.usage }
func (f fakeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	return f.run(ctx, cfg, args)
}

// перехват вывода CLI на время теста
func withOutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

func TestDispatcher_HelpAndUnknown(t *testing.T) {
	out := withOutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{}) })
	if !strings.Contains(out, "PassVault CLI") {
		t.Fatalf("global help expected, got: %s", out)
	}

	out = withOutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"help"}) })
	if !strings.Contains(out, "Usage:") {
		t.Fatalf("usage expected")
	}

	code := Dispatch(context.Background(), &config.Config{}, []string{"help", "login"})
	if code != 0 {
		t.Fatalf("expected 0 for help login, got %d", code)
	}

	out = withOutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"help", "nope"}) })
	if !strings.Contains(out, "Unknown command") {
		t.Fatalf("unknown command message expected")
	}

	code = Dispatch(context.Background(), &config.Config{}, []string{"no-such"})
	if code != 2 {
		t.Fatalf("expected 2 for unknown command, got %d", code)
	}
}

func TestDispatcher_RunPaths(t *testing.T) {
	cmdOK := fakeCmd{name: "x", usage: "x", run: func(_ context.Context, _ *config.Config, _ []string) error { return nil }}
	RegisterCmd(cmdOK)
	if code := Dispatch(context.Background(), &config.Config{}, []string{"x"}); code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}

	cmdUsage := fakeCmd{name: "u", usage: "u <arg>", run: func(_ context.Context, _ *config.Config, _ []string) error { return ErrUsage }}
	RegisterCmd(cmdUsage)
	out := withOutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"u"}) })
	if !strings.Contains(out, "Usage: u <arg>") {
		t.Fatalf("usage text expected")
	}

	cmdErr := fakeCmd{name: "e", usage: "e", run: func(_ context.Context, _ *config.Config, _ []string) error { return fmt.Errorf("boom") }}
	RegisterCmd(cmdErr)
	out = withOutCapture(t, func() { _ = Dispatch(context.Background(), &config.Config{}, []string{"e"}) })
	if !strings.Contains(out, "e error: boom") {
		t.Fatalf("error line expected, got: %s", out)
	}
}

func TestRegistry_VaultCommandSet(t *testing.T) {
	for _, name := range []string{"login", "logout", "register", "sync", "status",
		"list", "add-group", "add-field", "get-field", "rm", "purge"} {
		if _, ok := Get(name); !ok {
			t.Fatalf("command %q not registered", name)
		}
	}
	usage := FormatGlobalUsage()
	if !strings.Contains(usage, "add-group") || !strings.Contains(usage, "sync") {
		t.Fatalf("global usage incomplete: %s", usage)
	}
}

// офлайн-путь целиком: add-group, add-field, get-field, list, rm
func TestCommands_OfflineRoundTrip(t *testing.T) {
	cfg := &config.Config{
		VaultDir:          t.TempDir(),
		DeviceUUID:        "dddddddd-1111-2222-3333-444444444444",
		DisableLock:       true,
		ServerURL:         "http://127.0.0.1:1",
		ConnectTimeoutSec: 1,
		RequestTimeoutSec: 1,
	}
	ctx := context.Background()

	out := withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"add-group", "web"}); code != 0 {
			t.Fatalf("add-group failed, code %d", code)
		}
	})
	if !strings.Contains(out, "Group created, id=1") {
		t.Fatalf("unexpected add-group output: %s", out)
	}

	out = withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"add-field", "1", "password", "t0p-secret", "--hidden"}); code != 0 {
			t.Fatalf("add-field failed, code %d", code)
		}
	})
	if !strings.Contains(out, "Field created, id=1") {
		t.Fatalf("unexpected add-field output: %s", out)
	}

	out = withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"get-field", "1"}); code != 0 {
			t.Fatalf("get-field failed, code %d", code)
		}
	})
	if !strings.Contains(out, "t0p-secret") {
		t.Fatalf("decrypted value expected, got: %s", out)
	}

	out = withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"list"}); code != 0 {
			t.Fatalf("list failed, code %d", code)
		}
	})
	if !strings.Contains(out, "web") {
		t.Fatalf("group expected in list output: %s", out)
	}

	out = withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"rm", "group", "1"}); code != 0 {
			t.Fatalf("rm failed, code %d", code)
		}
	})
	if !strings.Contains(out, "marked deleted") {
		t.Fatalf("tombstone message expected: %s", out)
	}

	out = withOutCapture(t, func() {
		if code := Dispatch(ctx, cfg, []string{"list"}); code != 0 {
			t.Fatalf("list failed, code %d", code)
		}
	})
	if !strings.Contains(out, "Vault is empty") {
		t.Fatalf("empty vault expected after rm: %s", out)
	}
}
