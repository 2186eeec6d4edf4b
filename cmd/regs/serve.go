package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs/internal/logging"
	"github.com/hyperengineering/regs/internal/remote"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the remote record service",
	Long: `Run the HTTP record service that clients sync against.

Records are kept in memory unless a Postgres DSN is given. Requests must
carry the API key as a bearer token when one is configured. Prometheus
metrics are served at /metrics.`,
	Example: `  regs serve --addr :8080 --api-key secret
  regs serve --postgres postgres://regs@localhost/regs`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr     string
	servePostgres string
	serveMaxConns int32
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&servePostgres, "postgres", "", "Postgres DSN (default: $REGS_POSTGRES_DSN, else in-memory)")
	serveCmd.Flags().Int32Var(&serveMaxConns, "max-conns", 10, "Postgres pool size")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lc := logging.DefaultConfig()
	lc.Level = cfg.LogLevelName()
	lc.Format = cfg.LogFormat
	lc.Path = cfg.LogPath
	lc.ServiceName = "regs-server"
	lc.Version = version
	lc.Output = cmd.ErrOrStderr()
	logger, closer := logging.New(lc)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := servePostgres
	if dsn == "" {
		dsn = os.Getenv("REGS_POSTGRES_DSN")
	}

	var (
		backend     remote.Backend
		backendName = "memory"
	)
	if dsn != "" {
		pg, err := remote.OpenPostgres(ctx, dsn, serveMaxConns)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer pg.Close()
		backend, backendName = pg, "postgres"
	} else {
		backend = remote.NewMemoryBackend()
	}

	srv := remote.NewServer(backend, remote.ServerConfig{
		Addr:        serveAddr,
		APIKey:      cfg.APIKey,
		BackendName: backendName,
		Version:     version,
		Logger:      logger,
		Mounts:      map[string]http.Handler{"/metrics": promhttp.Handler()},
	})
	if cfg.APIKey == "" {
		logger.Warn("no API key configured, authentication disabled")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return <-errCh
}
