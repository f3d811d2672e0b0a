// replyctl is the operator CLI for reply-service.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"writemystory/pkg/db"
	"writemystory/pkg/logger"
	"writemystory/reply-service/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env holds what every subcommand shares. Connections are opened lazily.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *pgxpool.Pool
}

func (e *env) pool() (*pgxpool.Pool, error) {
	if e.db != nil {
		return e.db, nil
	}
	pool, err := db.NewConnection(e.cfg.DB, e.log)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	e.db = pool
	return pool, nil
}

func (e *env) close() {
	if e.db != nil {
		e.db.Close()
	}
	_ = e.log.Sync()
}

func rootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:           "replyctl",
		Short:         "Operate the reply-service datastore and outbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = logger.NewLogger()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}

	cmd.AddCommand(resolveCmd(e), outboxCmd(e), responsesCmd(e), tokenCmd(e))
	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
