package cmd

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/gradeprobe/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assessment HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		eng, err := newEngine(ctx, appConfig, st)
		if err != nil {
			return err
		}
		defer eng.Close()

		addr := appConfig.HTTPAddress()
		if a, _ := cmd.Flags().GetString("addr"); a != "" {
			addr = a
		}

		app := api.NewApp(api.Dependencies{
			AppName:            appConfig.AppName,
			AppEnv:             appConfig.AppEnv,
			Manager:            eng.manager,
			StartingDifficulty: appConfig.StartingDifficulty,
			Results:            st.SessionRepo(),
			Archives:           eng.archives,
			Logger:             logger,
		})

		go eng.manager.RunReaper(ctx, reapInterval(appConfig.SessionTTL), appConfig.SessionTTL)

		errCh := make(chan error, 1)
		go func() {
			logger.Info().Str("addr", addr).Msg("http server listening")
			errCh <- app.Listen(addr)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}
		return shutdown(app)
	},
}

// reapInterval checks for expired sessions a few times per TTL, at most
// once a minute.
func reapInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Minute)
}

func shutdown(app *fiber.App) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides GRADEPROBE_APP_PORT)")
}
