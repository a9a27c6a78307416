package commands

import (
	"context"
	"fmt"

	fsrepo "PassVault/internal/cli/repo/fs"
	"PassVault/internal/config"
)

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Push pending changes and drop the saved auth token" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Отправляем накопленные изменения, если сессия с сервером ещё жива.
	// Неудача не блокирует выход: записи остаются pending до следующего sync.
	pushed, err := svc.Push(ctx)
	if err != nil {
		return err
	}
	if !pushed {
		fmt.Fprintln(Out, "Push skipped; local changes kept pending")
	}

	if err := (fsrepo.AuthFSStore{}).Clear(); err != nil {
		return fmt.Errorf("clearing auth token: %w", err)
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() { RegisterCmd(logoutCmd{}) }
