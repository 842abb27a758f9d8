package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"

	_ "sp-export/docs"
	"sp-export/handlers"
	"sp-export/logger"
	"sp-export/middleware"
	"sp-export/services"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the export HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app := newApp(rt, rt.exportService(ctx))

			errCh := make(chan error, 1)
			go func() {
				rt.log.Info("server starting", logger.Ctx{
					"port":    rt.cfg.Server.Port,
					"storage": string(rt.cfg.Storage.Type),
					"redis":   rt.cfg.Redis.Enabled(),
				})
				errCh <- app.Listen(":" + rt.cfg.Server.Port)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			rt.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return app.ShutdownWithContext(shutdownCtx)
		},
	}

	cmd.Flags().String("port", "", "HTTP listen port (default 8080)")
	return cmd
}

func newApp(rt *runtime, exports *services.ExportService) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "sp-export",
	})

	// Middleware
	app.Use(fiberlogger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	if rt.cfg.Tracing.Enabled {
		app.Use(middleware.XRayMiddleware(rt.log))
	}

	// Swagger
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", handlers.Health)

	var queue services.Queue
	var results services.ResultStore
	if rt.redis != nil {
		queue, results = rt.redis, rt.redis
	}
	handlers.NewExportHandler(exports, queue, results).Register(app.Group("/api"))

	return app
}
