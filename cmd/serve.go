package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/scene"
	"github.com/conneroisu/wrap/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the bound page with live updates",
		Long: `Start a development server for the bound page. Each browser tab gets its
own copy of the scene: DOM events on @name elements run the actions configured
under scene.events and changed placeholders are pushed back over a WebSocket.
With watching enabled, editing the fragment, page or values file reloads
every open tab without losing its values.

Examples:
  wrap serve -f counter.html
  wrap serve -f counter.html --port 9000 --watch=false`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}

			return runServe(cmd.Context(), cfg)
		},
	}

	addSceneFlags(cmd, v)
	cmd.Flags().IntP("port", "p", config.DefaultPort, "port to serve on")
	cmd.Flags().String("host", config.DefaultHost, "host to bind to")
	cmd.Flags().Bool("watch", true, "reload open pages when scene files change")
	AddFlagValidation(cmd, "port", ValidatePort)

	bindFlags(cmd, v, map[string]string{
		"port":  "server.port",
		"host":  "server.host",
		"watch": "watch.enabled",
	})

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger()

	load := func() (scene.Spec, error) { return scene.ReadSpec(cfg) }
	spec, err := load()
	if err != nil {
		return err
	}

	srv := server.New(cfg, spec, load, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errCh
}
