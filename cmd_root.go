package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"sp-export/config"
	"sp-export/logger"
	"sp-export/services"
)

type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "sp-export",
		Short:         "Export a stored procedure result set to an xlsx object",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// inside the Lambda runtime the binary is started without arguments
			if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
				return runLambda(cmd, opts)
			}
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default $"+config.ConfigFileEnv+")")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("storage-type", "", "storage backend (s3, minio, local)")
	flags.String("bucket", "", "destination bucket")

	cmd.AddCommand(
		newLambdaCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
		newWorkerCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// runtime is what every subcommand needs once flags are parsed.
type runtime struct {
	cfg   config.Config
	log   logger.Logger
	redis *services.RedisService
}

func (r *runtime) Close() {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.log.Warn("failed to close redis client", logger.Ctx{"err": err.Error()})
		}
	}
}

func loadRuntime(cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	cfg, err := config.Load(opts.cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, log: log}
	if cfg.Redis.Enabled() {
		rt.redis = services.NewRedisService(cfg.Redis, cfg.Tracing.Enabled)
	}
	return rt, nil
}

// exportService builds the pipeline. A storage backend that cannot be built
// is reported per invocation as a configuration error.
func (r *runtime) exportService(ctx context.Context) *services.ExportService {
	var opts []services.ExportOption

	storage, err := services.NewStorageService(ctx, r.cfg.Storage, r.cfg.Tracing.Enabled)
	if err != nil {
		r.log.Error("failed to initialize storage", logger.Ctx{"type": string(r.cfg.Storage.Type), "err": err.Error()})
		storage = nil
		opts = append(opts, services.WithStorageError(err))
	}
	if r.redis != nil {
		opts = append(opts, services.WithResultStore(r.redis))
	}
	return services.NewExportService(r.cfg, r.log, storage, opts...)
}
