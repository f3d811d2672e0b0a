package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"writemystory/pkg/mq"
	"writemystory/pkg/outbox"
)

func outboxCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay outbox events",
	}

	var (
		id     int64
		failed bool
		limit  int
	)

	replay := &cobra.Command{
		Use:   "replay",
		Short: "Republish one event (--id) or all failed events (--failed)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id > 0) == failed {
				return errors.New("pass exactly one of --id or --failed")
			}

			pool, err := e.pool()
			if err != nil {
				return err
			}
			publisher, err := mq.NewPublisher(e.cfg.MQ.URL)
			if err != nil {
				return fmt.Errorf("connect mq: %w", err)
			}
			defer publisher.Close()

			svc := outbox.NewReplayService(outbox.NewRepository(pool), publisher, e.log)
			ctx := commandContext(cmd)

			if failed {
				n, err := svc.ReplayFailedEvents(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "replayed %d failed events\n", n)
				return nil
			}

			if err := svc.ReplayEvent(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed event %d\n", id)
			return nil
		},
	}

	replay.Flags().Int64Var(&id, "id", 0, "outbox event id")
	replay.Flags().BoolVar(&failed, "failed", false, "replay every failed event")
	replay.Flags().IntVar(&limit, "limit", 100, "max failed events to replay")

	cmd.AddCommand(replay)
	return cmd
}
