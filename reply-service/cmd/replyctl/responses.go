package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"writemystory/pkg/outbox"
	"writemystory/reply-service/internal/model"
	"writemystory/reply-service/internal/repository"
	"writemystory/reply-service/internal/service/moderation"
)

func responsesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "responses",
		Short: "Moderate stored email responses",
	}

	var moderator string

	setStatus := &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Move a response to reviewed or integrated",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := e.pool()
			if err != nil {
				return err
			}

			repo := repository.NewEmailResponseRepository(pool, outbox.NewRepository(pool))
			svc := moderation.NewService(repo, e.log)

			resp, err := svc.SetStatus(commandContext(cmd), args[0], model.ResponseStatus(args[1]), moderator)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	setStatus.Flags().StringVar(&moderator, "moderator", "replyctl", "moderator id recorded in the log")

	cmd.AddCommand(setStatus)
	return cmd
}
