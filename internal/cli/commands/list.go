package commands

import (
	"context"
	"fmt"
	"strings"

	"PassVault/internal/config"
)

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Print the group tree" }
func (listCmd) Usage() string       { return "list" }

func (listCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	groups, asm, err := svc.Tree()
	if err != nil {
		return err
	}
	if len(groups) == 0 {
		fmt.Fprintln(Out, "Vault is empty")
		return nil
	}
	for _, g := range groups {
		depth, _ := asm.Depth(g.ID)
		marker := ""
		if !g.Synced {
			marker = " *"
		}
		fmt.Fprintf(Out, "%s[%d] %s%s\n", strings.Repeat("  ", depth), g.ID, g.Title, marker)
	}
	return nil
}

func init() { RegisterCmd(listCmd{}) }
