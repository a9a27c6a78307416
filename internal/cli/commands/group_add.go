package commands

import (
	"context"
	"fmt"
	"strconv"

	"PassVault/internal/config"
)

type groupAddCmd struct{}

func (groupAddCmd) Name() string        { return "add-group" }
func (groupAddCmd) Description() string { return "Create a group (parent id 0 = root)" }
func (groupAddCmd) Usage() string       { return "add-group <title> [parent-id]" }

func (groupAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return ErrUsage
	}
	title := args[0]
	var parentID int64
	if len(args) > 1 {
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || v < 0 {
			return ErrUsage
		}
		parentID = v
	}

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := svc.AddGroup(title, parentID)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Group created, id=%d\n", id)
	return nil
}

func init() { RegisterCmd(groupAddCmd{}) }
