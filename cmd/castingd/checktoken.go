package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/deepworx/casting-agency/pkg/jwtauth"
)

var errNoToken = errors.New("no token given")

func checkTokenCmd(load loader) *cobra.Command {
	var permission string

	cmd := &cobra.Command{
		Use:   "check-token [token]",
		Short: "Verify a bearer token and print its claims",
		Long: "Verify a bearer token against the configured identity provider. " +
			"The token is read from stdin when no argument is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			token, err := readToken(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return checkToken(cmd.Context(), cfg.Auth, token, permission, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&permission, "permission", "", "Permission the token must grant")
	return cmd
}

func readToken(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		if token := strings.TrimSpace(args[0]); token != "" {
			return token, nil
		}
		return "", errNoToken
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read token: %w", err)
	}
	if token := strings.TrimSpace(line); token != "" {
		return token, nil
	}
	return "", errNoToken
}

type tokenReport struct {
	Valid       bool            `json:"valid"`
	Subject     string          `json:"subject,omitempty"`
	Permissions []string        `json:"permissions,omitempty"`
	Claims      *jwtauth.Claims `json:"claims,omitempty"`
	Code        string          `json:"code,omitempty"`
	Kind        string          `json:"kind,omitempty"`
	Status      int             `json:"status,omitempty"`
	Message     string          `json:"message,omitempty"`
}

// checkToken runs token through a guard built from cfg and writes a JSON
// report to w. A rejected token is reported and returned as an error.
func checkToken(ctx context.Context, cfg jwtauth.Config, token, permission string, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	guard, _, err := jwtauth.New(ctx, cfg)
	if err != nil {
		return err
	}

	header := token
	if len(strings.Fields(token)) < 2 {
		header = "Bearer " + token
	}

	var report tokenReport
	claims, authErr := guard.Authorize(ctx, header, permission)
	if f, ok := jwtauth.AsFailure(authErr); ok {
		report = tokenReport{
			Code:    f.Code,
			Kind:    f.Kind.String(),
			Status:  f.HTTPStatus,
			Message: f.Description,
		}
	} else {
		report = tokenReport{
			Valid:       true,
			Subject:     claims.Subject(),
			Permissions: claims.Scopes(),
			Claims:      &claims,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if authErr != nil {
		return fmt.Errorf("token rejected: %w", authErr)
	}
	return nil
}
