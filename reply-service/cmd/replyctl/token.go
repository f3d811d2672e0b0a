package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"writemystory/pkg/rbac"
	"writemystory/pkg/util"
)

func tokenCmd(e *env) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a moderator token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return errors.New("--user is required")
			}
			if !rbac.HasPermission(role, rbac.PermissionReadResponses) {
				return fmt.Errorf("role %q cannot use the admin API", role)
			}
			if e.cfg.JWT.Secret == "" {
				return errors.New("jwt secret is not configured")
			}

			token, err := util.GenerateJWT(userID, role, e.cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "moderator user id")
	cmd.Flags().StringVar(&role, "role", rbac.RoleModerator, "moderator or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
