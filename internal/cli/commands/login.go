package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"PassVault/internal/cli/api"
	"PassVault/internal/config"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Login and pull the authoritative vault state" }
func (loginCmd) Usage() string       { return "login <email> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	email, password := args[0], args[1]
	endpoint := strings.TrimRight(cfg.ServerURL, "/") + "/api/user/login"
	resp, body, err := api.PostJSON(endpoint, LoginRequest{Email: email, Password: password}, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		if err := api.PersistAuthFromResponse(resp); err != nil {
			return fmt.Errorf("saving auth: %w", err)
		}
	case http.StatusUnauthorized:
		return errors.New("invalid email or password")
	default:
		return fmt.Errorf("server error: %s", strings.TrimSpace(string(body)))
	}

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
		fmt.Fprintln(Out, "Logged in; vault pull unavailable, try sync later")
		return nil
	}
	fmt.Fprintln(Out, "Logged in, vault up to date")
	return nil
}

func init() { RegisterCmd(loginCmd{}) }
