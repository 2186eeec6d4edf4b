package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/regs"
	"github.com/hyperengineering/regs/internal/logging"
	"github.com/hyperengineering/regs/internal/remote"
	"github.com/hyperengineering/regs/internal/store"
	"github.com/hyperengineering/regs/internal/tracing"
)

var (
	cfgDBPath     string
	cfgProfile    string
	cfgRemoteURL  string
	cfgAPIKey     string
	cfgOwner      string
	cfgConfigFile string
	cfgDebug      bool
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "regs",
	Short: "regs - offline-first measurement records",
	Long: `regs keeps tailoring and furnishing measurement records in a local
SQLite database and mirrors them to a remote record service when an owner
is signed in.

Every change is committed locally first. Records that could not reach the
remote stay pending and are pushed by the next sync.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgDBPath, "db", "", "Path to local database (default: ~/.regs/profiles/<profile>/regs.db)")
	pf.StringVar(&cfgProfile, "profile", "", "Profile name (default: $REGS_PROFILE or \"default\")")
	pf.StringVar(&cfgRemoteURL, "remote-url", "", "URL of the remote record service")
	pf.StringVar(&cfgAPIKey, "api-key", "", "API key for the remote record service")
	pf.StringVar(&cfgOwner, "owner", "", "Signed-in account id (empty works offline)")
	pf.StringVar(&cfgConfigFile, "config", "", "Config file (default: ~/.regs/config.yaml)")
	pf.BoolVar(&cfgDebug, "debug", false, "Enable debug logging")
	pf.BoolVar(&outputJSON, "json", false, "Output as JSON")
}

// configFilePath returns the config file to read: the --config flag, then
// $REGS_CONFIG, then config.yaml next to the profiles directory.
func configFilePath() string {
	if cfgConfigFile != "" {
		return cfgConfigFile
	}
	if v := os.Getenv("REGS_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(filepath.Dir(store.DefaultRoot()), "config.yaml")
}

// loadConfig layers configuration: file, then environment, then flags.
func loadConfig() (regs.Config, error) {
	var cfg regs.Config

	fileCfg, err := regs.LoadConfigFile(configFilePath())
	if err != nil {
		return cfg, err
	}
	cfg = cfg.Merge(fileCfg)
	cfg = cfg.Merge(regs.ConfigFromEnv())
	cfg = cfg.Merge(regs.Config{
		LocalPath: cfgDBPath,
		Profile:   cfgProfile,
		RemoteURL: cfgRemoteURL,
		APIKey:    cfgAPIKey,
		Owner:     cfgOwner,
		Debug:     cfgDebug,
	})
	return cfg.WithDefaults(), nil
}

// loadAndValidateConfig loads config and validates it before any store is opened.
func loadAndValidateConfig() (regs.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loggingConfig derives the process logger settings from cfg. Logs go to
// errOut unless a log file is configured.
func loggingConfig(cfg regs.Config, errOut io.Writer) logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = cfg.LogLevelName()
	lc.Format = cfg.LogFormat
	lc.Path = cfg.LogPath
	lc.Version = version
	lc.Output = errOut
	if !cfg.Debug && cfg.LogPath == "" && cfg.LogLevel == logging.LevelInfo {
		// Interactive commands stay quiet below warn.
		lc.Level = logging.LevelWarn
	}
	return lc
}

// clientSession bundles a client with the resources opened for it.
type clientSession struct {
	client  *regs.Client
	cfg     regs.Config
	closers []func() error
}

func (s *clientSession) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

// openClient loads configuration and opens a client with logging, tracing
// and, when a remote URL is configured, the HTTP remote store.
func openClient(cmd *cobra.Command) (*clientSession, error) {
	cfg, err := loadAndValidateConfig()
	if err != nil {
		return nil, err
	}

	logger, logCloser := logging.New(loggingConfig(cfg, cmd.ErrOrStderr()))
	sess := &clientSession{cfg: cfg, closers: []func() error{logCloser.Close}}

	tc := tracing.DefaultConfig()
	tc.ExporterType = tracing.ParseExporter(cfg.Trace)
	tc.OTLPEndpoint = cfg.OTLPEndpoint
	tc.Version = version
	tc.Output = cmd.ErrOrStderr()
	tracer, err := tracing.Init(commandContext(cmd), tc)
	if err != nil {
		sess.Close()
		return nil, err
	}
	sess.closers = append(sess.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracer.Shutdown(ctx)
	})

	opts := []regs.Option{regs.WithLogger(logger), regs.WithTracer(tracer)}
	if !cfg.IsOffline() {
		opts = append(opts, regs.WithRemote(remote.NewHTTPClient(cfg.RemoteURL, cfg.APIKey, cfg.SourceID)))
	}

	client, err := regs.New(cfg, opts...)
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	sess.client = client
	sess.closers = append(sess.closers, client.Close)
	return sess, nil
}

// commandContext returns the command's context, or Background when it has none.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
