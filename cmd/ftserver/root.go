package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/danmuck/ftserve/cmd/internal/logcfg"
	"github.com/danmuck/ftserve/src/config"
	"github.com/danmuck/ftserve/src/journal"
	"github.com/danmuck/ftserve/src/metrics"
	"github.com/danmuck/ftserve/src/session"
	logs "github.com/danmuck/smplog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	baseDir     string
	journalPath string
	metricsAddr string
	logConfig   string
)

var rootCmd = &cobra.Command{
	Use:   "ftserver [PORT]",
	Short: "Serve a directory over the two-connection file transfer protocol",
	Long: `ftserver accepts one command per control connection. Directory listings
and file contents are delivered on a second connection the server opens
back to the client's data port; errors are answered on the control
connection.

Examples:
  # Serve the current directory on the default port
  ftserver

  # Serve ./public on port 30021 and journal every session
  ftserver 30021 --dir ./public --journal ./local/sessions.journal`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logConfig, "log-config", "", "smplog config file (default: $SMPLOG_CONFIG or ./smplog.config.toml)")
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "server config file (TOML)")
	rootCmd.Flags().StringVar(&baseDir, "dir", "", "directory to serve (overrides base_dir)")
	rootCmd.Flags().StringVar(&journalPath, "journal", "", "session journal file (overrides journal_path)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the /metrics endpoint (overrides metrics_addr)")

	rootCmd.AddCommand(journalCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// parsePort accepts decimal digits only, within [config.MinPort, config.MaxPort].
func parsePort(s string) (int, error) {
	if s == "" {
		return 0, errors.New("port is empty")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("port %q must contain only digits", s)
		}
	}
	port, err := strconv.Atoi(s)
	if err != nil || port < config.MinPort || port > config.MaxPort {
		return 0, fmt.Errorf("port %q outside [%d,%d]", s, config.MinPort, config.MaxPort)
	}
	return port, nil
}

// loadServerConfig layers the config file, the positional port and the
// flags that were set on top of the defaults.
func loadServerConfig(cmd *cobra.Command, args []string) (config.ServerConfig, error) {
	cfg := config.DefaultServerConfig()
	if cfgFile != "" {
		loaded, err := config.LoadServerConfig(cfgFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if len(args) == 1 {
		port, err := parsePort(args[0])
		if err != nil {
			return cfg, err
		}
		cfg.Port = port
	}
	flags := cmd.Flags()
	if flags.Changed("dir") {
		cfg.BaseDir = baseDir
	}
	if flags.Changed("journal") {
		cfg.JournalPath = journalPath
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, args []string) error {
	logs.Configure(logcfg.Load(logConfig))

	cfg, err := loadServerConfig(cmd, args)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var j *journal.Journal
	if cfg.JournalPath != "" {
		j, err = journal.Open(cfg.JournalPath)
		if err != nil {
			logs.Fatalf(err, "failed to open journal %s", cfg.JournalPath)
		}
		defer j.Close()
	}

	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		rec = metrics.NewRecorder(reg)

		msrv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logs.Infof("metrics listening on %s", cfg.MetricsAddr)
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logs.Errorf(err, "metrics server stopped")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			msrv.Shutdown(ctx)
		}()
	}

	srv := session.NewServer(cfg, j, rec)
	if err := srv.Listen(); err != nil {
		logs.Fatalf(err, "failed to listen on port %d", cfg.Port)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
