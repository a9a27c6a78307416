package commands

import (
	"context"
	"fmt"
	"strconv"

	"PassVault/internal/config"
)

type fieldAddCmd struct{}

func (fieldAddCmd) Name() string        { return "add-field" }
func (fieldAddCmd) Description() string { return "Add an encrypted field to a group" }
func (fieldAddCmd) Usage() string       { return "add-field <group-id> <title> <value> [--hidden]" }

func (fieldAddCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return ErrUsage
	}
	groupID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || groupID <= 0 {
		return ErrUsage
	}
	title, value := args[1], args[2]
	hidden := len(args) > 3 && args[3] == "--hidden"

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := svc.AddField(groupID, title, []byte(value), hidden)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Field created, id=%d\n", id)
	return nil
}

func init() { RegisterCmd(fieldAddCmd{}) }

type fieldGetCmd struct{}

func (fieldGetCmd) Name() string        { return "get-field" }
func (fieldGetCmd) Description() string { return "Decrypt and print a field value" }
func (fieldGetCmd) Usage() string       { return "get-field <field-id>" }

func (fieldGetCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return ErrUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return ErrUsage
	}

	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	value, err := svc.RevealField(id)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "%s\n", value)
	return nil
}

func init() { RegisterCmd(fieldGetCmd{}) }
