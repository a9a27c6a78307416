package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"PassVault/internal/cli/api"
	"PassVault/internal/cli/model"
	fsrepo "PassVault/internal/cli/repo/fs"
	"PassVault/internal/config"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DeviceRegisterRequest struct {
	UUID string `json:"uuid"`
	Host string `json:"host"`
}

type DeviceRegisterResponse struct {
	ID            int64  `json:"id"`
	HostPublicKey string `json:"hostPublicKey"`
}

type registerCmd struct{}

func (registerCmd) Name() string        { return "register" }
func (registerCmd) Description() string { return "Register user and this device on the server" }
func (registerCmd) Usage() string       { return "register <name> <email> <password>" }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return ErrUsage
	}
	name, email, password := args[0], args[1], args[2]
	base := strings.TrimRight(cfg.ServerURL, "/")

	resp, body, err := api.PostJSON(base+"/api/user/register",
		RegisterRequest{Name: name, Email: email, Password: password}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("register failed: %s", strings.TrimSpace(string(body)))
	}
	if err := api.PersistAuthFromResponse(resp); err != nil {
		return fmt.Errorf("saving auth: %w", err)
	}

	// регистрируем устройство; uuid берём из конфига или генерируем новый
	devUUID := cfg.DeviceUUID
	if devUUID == "" {
		devUUID = uuid.NewString()
		cfg.DeviceUUID = devUUID
	}
	token, err := (fsrepo.AuthFSStore{}).Load()
	if err != nil {
		return fmt.Errorf("no auth token: %w", err)
	}
	resp2, body2, err := api.PostJSON(base+"/api/device/register",
		DeviceRegisterRequest{UUID: devUUID, Host: cfg.BaseURL}, token)
	if err != nil {
		return err
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		return fmt.Errorf("device register failed: %s", strings.TrimSpace(string(body2)))
	}
	var dr DeviceRegisterResponse
	if err := json.Unmarshal(body2, &dr); err != nil {
		return err
	}
	if dr.ID == 0 || dr.HostPublicKey == "" {
		return errors.New("device register: incomplete response")
	}

	// сохраняем идентичность устройства в локальное хранилище
	svc, cleanup, err := openService(cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	d := &model.Device{
		ID:            dr.ID,
		UUID:          devUUID,
		Host:          cfg.BaseURL,
		HostPublicKey: dr.HostPublicKey,
		Status:        model.DeviceActive,
	}
	if err := svc.Session().Vault.Devices.Save(d); err != nil {
		return err
	}
	fmt.Fprintf(Out, "Registered. Device uuid: %s\n", devUUID)
	return nil
}

func init() { RegisterCmd(registerCmd{}) }
