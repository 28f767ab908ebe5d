package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/danmuck/ftserve/cmd/internal/logcfg"
	"github.com/danmuck/ftserve/src/client"
	"github.com/danmuck/ftserve/src/config"
	logs "github.com/danmuck/smplog"
	"github.com/spf13/cobra"
)

var (
	logConfig string
	dataHost  string
	force     bool
)

var rootCmd = &cobra.Command{
	Use:   "ftclient",
	Short: "List or fetch files from an ftserver",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logs.Configure(logcfg.Load(logConfig))
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var listCmd = &cobra.Command{
	Use:   "list HOST PORT DATAPORT",
	Short: "Print the files the server shares",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clientConfig(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		c, err := client.New(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		names, err := c.List(ctx)
		if err != nil {
			return err
		}
		printListing(cmd.OutOrStdout(), cfg.ServerAddr, names)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get HOST PORT FILE DATAPORT",
	Short: "Fetch FILE into the current directory",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clientConfig(args[0], args[1], args[3])
		if err != nil {
			return err
		}
		name := args[2]
		if err := client.ValidateFileName(name); err != nil {
			return err
		}
		dest := filepath.Join(".", name)
		if err := checkOverwrite(dest, force); err != nil {
			return err
		}
		c, err := client.New(cfg)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		data, err := c.Retrieve(ctx, name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Received %q (%d bytes) from %s\n", name, len(data), cfg.ServerAddr)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logConfig, "log-config", "", "smplog config file (default: $SMPLOG_CONFIG or ./smplog.config.toml)")
	rootCmd.PersistentFlags().StringVar(&dataHost, "data-host", "", "local address to accept the data connection on (default: all interfaces)")
	getCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing local file")

	rootCmd.AddCommand(listCmd, getCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// parsePort accepts decimal digits only, within [config.MinPort, config.MaxPort].
func parsePort(what, s string) (int, error) {
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid %s %q", what, s)
		}
	}
	port, err := strconv.Atoi(s)
	if err != nil || port < config.MinPort || port > config.MaxPort {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return port, nil
}

func clientConfig(host, serverPort, dataPort string) (config.ClientConfig, error) {
	sp, err := parsePort("server port", serverPort)
	if err != nil {
		return config.ClientConfig{}, err
	}
	dp, err := parsePort("data port", dataPort)
	if err != nil {
		return config.ClientConfig{}, err
	}
	if sp == dp {
		return config.ClientConfig{}, errors.New("server port and data port must be different")
	}
	return config.ClientConfig{
		ServerAddr: net.JoinHostPort(host, strconv.Itoa(sp)),
		DataHost:   dataHost,
		DataPort:   dp,
	}, nil
}

// checkOverwrite refuses to replace an existing regular file unless force is set.
func checkOverwrite(path string, force bool) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case !info.Mode().IsRegular():
		return fmt.Errorf("%s exists and is not a regular file", path)
	case !force:
		return fmt.Errorf("%s already exists, use --force to overwrite it", path)
	}
	return nil
}

func printListing(w io.Writer, addr string, names []string) {
	fmt.Fprintf(w, "Receiving directory structure from %s\n", addr)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
}
