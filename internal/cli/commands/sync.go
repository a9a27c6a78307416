package commands

import (
	"context"
	"fmt"

	"PassVault/internal/config"
)

type syncCmd struct{}

func (syncCmd) Name() string        { return "sync" }
func (syncCmd) Description() string { return "Pull server state, then push local changes" }
func (syncCmd) Usage() string       { return "sync <email> <password>" }

func (syncCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	email, password := args[0], args[1]

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ok, err := svc.Login(ctx, email, []byte(password))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(Out, "Pull failed, nothing pushed")
		return nil
	}
	pushed, err := svc.Push(ctx)
	if err != nil {
		return err
	}
	if !pushed {
		fmt.Fprintln(Out, "Pull ok, push failed; local changes kept pending")
		return nil
	}
	fmt.Fprintln(Out, "Vault synchronized")
	return nil
}

func init() { RegisterCmd(syncCmd{}) }
