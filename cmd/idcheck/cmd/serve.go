package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/server"
	"github.com/MeKo-Tech/idcheck/internal/version"
	"github.com/spf13/cobra"
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP verification API",
	Long: `Start an HTTP server that verifies uploaded identity documents.

The server provides the following endpoints:
  POST /v1/verify    - Verify uploaded front/back images against a profile
  POST /v1/mrz/parse - Parse MRZ text
  GET  /ws/verify    - WebSocket verification with per-attempt progress
  GET  /health       - Health check endpoint
  GET  /metrics      - Prometheus metrics

Examples:
  idcheck serve
  idcheck serve --port 8080
  idcheck serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		serverConfig := configToServerConfig(cfg, cmd)

		if serverConfig.Port < 1 || serverConfig.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		v, err := cfg.NewVerifier(slog.Default())
		if err != nil {
			return fmt.Errorf("failed to initialize verifier: %w", err)
		}
		parser := mrz.NewParser(cfg.ToParserOptions(slog.Default()))
		srv := server.NewServer(serverConfig, v, parser)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		timeout := time.Duration(serverConfig.TimeoutSec) * time.Second
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", serverConfig.Host, serverConfig.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			// Verification may use the whole request timeout before writing.
			WriteTimeout: timeout + 5*time.Second,
		}

		go func() {
			slog.Info("Starting verification server", "host", serverConfig.Host, "port", serverConfig.Port, "version", serverConfig.Version)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Server error", "error", err)
				cancel()
			}
		}()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			slog.Info("Received shutdown signal", "signal", sig.String())
		case <-ctx.Done():
			slog.Info("Context cancelled, initiating shutdown")
		}

		slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", shutdownTimeout))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(shutdownTimeout)*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
			return err
		}
		slog.Info("Graceful shutdown completed")
		return nil
	},
}

// configToServerConfig maps centralized configuration to server.Config with
// flag overrides.
func configToServerConfig(cfg *config.Config, cmd *cobra.Command) server.Config {
	sc := server.Config{
		Host:          cfg.Server.Host,
		Port:          cfg.Server.Port,
		CORSOrigin:    cfg.Server.CORSOrigin,
		MaxUploadMB:   int64(cfg.Server.MaxUploadMB),
		TimeoutSec:    cfg.Server.TimeoutSec,
		MaxImageWidth: cfg.Preprocess.MaxWidth,
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerMinute: cfg.Server.RateLimit.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RateLimit.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.RateLimit.MaxRequestsPerDay,
			MaxDataPerDayMB:   int64(cfg.Server.RateLimit.MaxDataPerDayMB),
		},
		Version: version.Get().Version,
		Logger:  slog.Default(),
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-upload-size") {
		sc.MaxUploadMB, _ = flags.GetInt64("max-upload-size")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDayMB, _ = flags.GetInt64("max-data-per-day")
	}
	return sc
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd)
}

func addServeFlags(c *cobra.Command) {
	c.Flags().StringP("host", "H", "localhost", "server host")
	c.Flags().IntP("port", "p", 8080, "server port")
	c.Flags().String("cors-origin", "*", "CORS allowed origins")
	c.Flags().Int64("max-upload-size", 20, "maximum upload size in MB")
	c.Flags().Int("timeout", 60, "request timeout in seconds")
	c.Flags().Int("shutdown-timeout", 10, "shutdown timeout in seconds")

	c.Flags().Bool("rate-limit-enabled", false, "enable rate limiting")
	c.Flags().Int("requests-per-minute", 30, "maximum requests per minute per client")
	c.Flags().Int("requests-per-hour", 600, "maximum requests per hour per client")
	c.Flags().Int("max-requests-per-day", 5000, "maximum requests per day per client")
	c.Flags().Int64("max-data-per-day", 2048, "maximum data uploaded per day per client (MB)")
}
