package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/trainboard/internal/database"
	"github.com/hitoshi/trainboard/internal/middleware"
	"github.com/hitoshi/trainboard/internal/railstub"
)

func (c *cli) stubServerCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Run the mock train-info backend for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = c.app.cfg.StubServerPort
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.app.RunStubServer(ctx, ":"+port, nil)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (default STUB_SERVER_PORT)")
	return cmd
}

// RunStubServer はモックバックエンドを起動し、ctxが終了するとグレースフルシャットダウンする。
// readyが指定された場合は待ち受け開始後にアドレスを送る。
func (a *App) RunStubServer(ctx context.Context, addr string, ready chan<- string) error {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(a.cfg.RateLimitPerMinute))
	defer limiter.Stop()

	router := railstub.NewRouter(&railstub.RouterDeps{
		Handler:           railstub.NewHandler(nil, nil),
		Logger:            a.logger,
		CORSAllowedOrigin: a.cfg.CORSAllowedOrigin,
		RateLimiter:       limiter,
		Metrics:           a.collector,
		Gatherer:          a.registry,
	})

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("stub server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down stub server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	a.logger.Info("stub server stopped gracefully")
	return nil
}

func (c *cli) healthcheckCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check that a local stub server answers /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if port == "" {
				port = c.app.cfg.StubServerPort
			}
			return runHealthcheck(cmd.Context(), "http://localhost:"+port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "stub server port (default STUB_SERVER_PORT)")
	return cmd
}

// runHealthcheck はbaseURLの/healthにリクエストを送り、200以外ならエラーを返す。
// distroless環境でのDockerヘルスチェック用。
func runHealthcheck(ctx context.Context, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *cli) migrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the favorites schema in PostgreSQL",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.app.cfg.ValidateDatabase()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slog.Info("running database migrations",
				slog.String("database_url", maskDatabaseURL(c.app.cfg.DatabaseURL)),
			)
			if err := database.RunMigrations(c.app.cfg.DatabaseURL); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			slog.Info("database migrations completed successfully")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.RollbackMigrations(c.app.cfg.DatabaseURL, steps); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			slog.Info("database migrations rolled back", slog.Int("steps", steps))
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			version, dirty, err := database.MigrationVersion(c.app.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			view := struct {
				Version uint `json:"version" yaml:"version"`
				Dirty   bool `json:"dirty" yaml:"dirty"`
			}{version, dirty}
			return c.printer().print(view, func(w io.Writer) {
				fmt.Fprintf(w, "version %d (dirty: %t)\n", version, dirty)
			})
		},
	})
	return cmd
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
