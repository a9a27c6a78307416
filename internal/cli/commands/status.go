package commands

import (
	"context"
	"fmt"

	"PassVault/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Show vault and pending-sync summary" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sess := svc.Session()
	fmt.Fprintf(Out, "Device: %s (%s)\n", sess.Device.UUID, sess.Device.Status)
	if sess.User.Email != "" {
		fmt.Fprintf(Out, "User:   %s (%s)\n", sess.User.Email, sess.User.Status)
	}

	// GetForSync: неотправленные удаления тоже считаются изменениями
	pendingGroups, err := sess.Vault.Groups.GetForSync(true)
	if err != nil {
		return err
	}
	pendingGroupFields, err := sess.Vault.GroupFields.GetForSync(true)
	if err != nil {
		return err
	}
	pendingFields, err := sess.Vault.Fields.GetForSync(true)
	if err != nil {
		return err
	}
	fmt.Fprintf(Out, "Pending: %d groups, %d group fields, %d fields\n",
		len(pendingGroups), len(pendingGroupFields), len(pendingFields))
	fmt.Fprintf(Out, "Sync state: %s\n", svc.SyncState())
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
