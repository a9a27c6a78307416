package commands

import (
	"context"
	"fmt"
	"strconv"

	"PassVault/internal/config"
)

type rmCmd struct{}

func (rmCmd) Name() string        { return "rm" }
func (rmCmd) Description() string { return "Soft-delete a group (with contents) or a field" }
func (rmCmd) Usage() string       { return "rm group|field <id>" }

func (rmCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	kind := args[0]
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || id <= 0 {
		return ErrUsage
	}

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	switch kind {
	case "group":
		err = svc.RemoveGroup(id)
	case "field":
		err = svc.RemoveField(id)
	default:
		return ErrUsage
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s %d marked deleted (will purge after sync)\n", kind, id)
	return nil
}

func init() { RegisterCmd(rmCmd{}) }

type purgeCmd struct{}

func (purgeCmd) Name() string        { return "purge" }
func (purgeCmd) Description() string { return "Physically remove tombstones confirmed by the server" }
func (purgeCmd) Usage() string       { return "purge" }

func (purgeCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.Purge(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Purged")
	return nil
}

func init() { RegisterCmd(purgeCmd{}) }
