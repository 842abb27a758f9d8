package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"sp-export/services"
)

func newWorkerCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run queued exports from Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.redis == nil {
				return errors.New("worker needs redis: set SP_EXPORT_REDIS_HOST")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := rt.redis.Ping(ctx); err != nil {
				return err
			}
			return services.NewWorker(rt.redis, rt.exportService(ctx), rt.log).Run(ctx)
		},
	}
}
