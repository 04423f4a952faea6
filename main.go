package main

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"Kiln/commands"
	"Kiln/internal/config"
	"Kiln/internal/game"
)

var version = "dev"

func main() {
	var configPath string
	var overrides struct {
		listen  string
		dataDir string
		metrics string
		level   string
	}

	var cmdServe = &cobra.Command{
		Use:   "serve",
		Short: "Run the telnet server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("listen") {
				cfg.Listen = overrides.listen
			}
			if flags.Changed("data") {
				cfg.DataDir = overrides.dataDir
			}
			if flags.Changed("metrics") {
				cfg.MetricsListen = overrides.metrics
			}
			if flags.Changed("log-level") {
				cfg.Log.Level = overrides.level
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmdServe.Flags().StringVar(&overrides.listen, "listen", "", "TCP address to listen on")
	cmdServe.Flags().StringVar(&overrides.dataDir, "data", "", "directory holding player records")
	cmdServe.Flags().StringVar(&overrides.metrics, "metrics", "", "address for the Prometheus endpoint, empty disables it")
	cmdServe.Flags().StringVar(&overrides.level, "log-level", "", "debug, info, warn or error")

	var cmdConfig = &cobra.Command{
		Use:   "init-config",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(configPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}

	var cmdVersion = &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}

	var rootCmd = &cobra.Command{
		Use:           "kiln",
		Short:         "A small multi-user telnet server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          cmdServe.RunE,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "configuration file")
	rootCmd.Flags().AddFlagSet(cmdServe.Flags())
	rootCmd.AddCommand(cmdServe, cmdConfig, cmdVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "kiln:", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := config.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	charset, ok := game.LookupCharset(cfg.Charset)
	if !ok {
		return fmt.Errorf("unknown charset %q", cfg.Charset)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := game.NewMetrics(reg)
	if cfg.MetricsListen != "" {
		srv := startMetrics(cfg.MetricsListen, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	accounts, err := game.NewAccountManager(cfg.PlayersDir(),
		game.WithAccountLogger(logger),
		game.WithAdminAccount(cfg.Admin),
		game.WithPeekTTL(cfg.FingerCacheTTL),
	)
	if err != nil {
		return err
	}

	ln, err := game.Listen(cfg.Listen)
	if err != nil {
		return err
	}
	poller, err := game.NewSystemPoller()
	if err != nil {
		ln.Close()
		return err
	}
	defer poller.Close()

	var srv *game.Server
	lobby := commands.NewLobby(accounts,
		commands.WithLogger(logger),
		commands.WithRate(cfg.Commands.Rate, cfg.Commands.Burst),
		commands.WithSaveInterval(cfg.SaveInterval),
		commands.WithShutdown(func() { srv.Stop() }),
	)
	defer lobby.Close()

	srv, err = game.NewServer(ln, poller, lobby.Accept,
		game.WithConfig(game.Config{
			PollTimeout:  cfg.PollTimeout,
			InputBuffer:  cfg.InputBuffer,
			OutputBuffer: cfg.OutputBuffer,
			ReadChunk:    cfg.ReadChunk,
			Charset:      charset,
		}),
		game.WithLogger(logger),
		game.WithMetrics(metrics),
		game.WithTick(lobby.Tick),
	)
	if err != nil {
		ln.Close()
		return err
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		srv.Stop()
	}()

	logger.Info("kiln listening", "addr", srv.Addr(), "version", version)
	return srv.Run()
}

func startMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("metrics endpoint listening", "addr", addr)
	return srv
}
