package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"oraclebench/internal/banner"
	"oraclebench/internal/cli"
	"oraclebench/internal/dummy"
	"oraclebench/internal/runner"
	"oraclebench/internal/storage"
	"oraclebench/internal/tui/app"
)

var cfgFile string

// errThreshold makes the process exit non-zero when a run misses
// --min-success-rate.
var errThreshold = errors.New("success rate below threshold")

var rootCmd = &cobra.Command{
	Use:   "oraclebench",
	Short: "oraclebench - correctness and load harness for numeric services",
	Long: `
oraclebench checks a numeric HTTP service against a reference oracle.

It has two passes:
1. functional: sequential requests, every answer checked for correctness and latency
2. load:       escalating bursts of concurrent requests, success rate and latency per burst

Without a subcommand it starts the interactive terminal UI.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runTUI(cfg)
	},
}

var functionalCmd = &cobra.Command{
	Use:   "functional",
	Short: "Run the sequential functional verification pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHeadless(cli.RunFunctional)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Run escalating concurrent bursts",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHeadless(cli.RunLoad)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recorded runs, or print one run as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("history_path")
		if path == "" {
			p, err := storage.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		store, err := storage.NewStore(path)
		if err != nil {
			return err
		}
		defer store.Close()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		return showHistory(cmd.OutOrStdout(), store, id)
	},
}

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run the simulated /sqrt service",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, _ := cmd.Flags().GetInt("port")
		logger, err := newLogger(viper.GetString("log_level"))
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		dcfg := dummy.DefaultConfig()
		dcfg.Port = port
		return dummy.Start(ctx, dcfg, logger)
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errThreshold) {
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(functionalCmd, loadCmd, historyCmd, dummyCmd)

	defaults := runner.DefaultConfig()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.oraclebench.yaml)")

	pf.StringP("url", "u", defaults.URL, "Service URL")
	pf.String("oracle", defaults.Oracle, "Reference function (sqrt, square, identity)")
	pf.Float64("epsilon", defaults.Tolerance.CorrectnessEpsilon, "Allowed absolute error")
	pf.Float64("latency-min", defaults.Tolerance.LatencyLowerBoundMs, "Lower latency bound (ms)")
	pf.Float64("latency-max", defaults.Tolerance.LatencyUpperBoundMs, "Upper latency bound (ms)")
	pf.Duration("timeout", defaults.Timeout, "Per-request timeout")
	pf.Int64("min", defaults.Low, "Smallest generated input")
	pf.Int64("max", defaults.High, "Largest generated input")
	pf.IntP("count", "n", defaults.Count, "Requests in the functional pass")
	pf.IntSliceP("levels", "l", defaults.Levels, "Burst sizes for the load pass, in order")
	pf.Int64("seed", 0, "Input generator seed (0 = random)")
	pf.Int("pool-size", defaults.PoolSize, "Max connections to the service")

	pf.StringP("out", "o", "", "Output filename prefix for reports")
	pf.Float64("min-success-rate", 0, "Fail (exit 1) below this success rate, in percent")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	pf.Bool("history", false, "Record the run in the history store")
	pf.String("history-path", "", "History store file (default is $HOME/.oraclebench/history.db)")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")

	bindings := map[string]string{
		"url":                   "url",
		"oracle":                "oracle",
		"tolerance.epsilon":     "epsilon",
		"tolerance.latency_min": "latency-min",
		"tolerance.latency_max": "latency-max",
		"timeout":               "timeout",
		"min":                   "min",
		"max":                   "max",
		"count":                 "count",
		"levels":                "levels",
		"seed":                  "seed",
		"pool_size":             "pool-size",
		"out":                   "out",
		"min_success_rate":      "min-success-rate",
		"metrics_addr":          "metrics-addr",
		"history":               "history",
		"history_path":          "history-path",
		"log_level":             "log-level",
	}
	for key, flag := range bindings {
		viper.BindPFlag(key, pf.Lookup(flag))
	}

	dummyCmd.Flags().IntP("port", "p", dummy.DefaultConfig().Port, "Port to run dummy server on")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".oraclebench")
		}
	}
	viper.SetEnvPrefix("oraclebench")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// --- Runners ---

func loadConfig() (runner.Config, error) {
	var cfg runner.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", runner.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func historyPath() (string, error) {
	if !viper.GetBool("history") {
		return "", nil
	}
	if p := viper.GetString("history_path"); p != "" {
		return p, nil
	}
	return storage.DefaultPath()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runner.ErrInvalidConfig, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.DisableStacktrace = true
	return zcfg.Build()
}

func runHeadless(run func(context.Context, cli.Options) (bool, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(viper.GetString("log_level"))
	if err != nil {
		return err
	}
	defer logger.Sync()

	hist, err := historyPath()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	passed, err := run(ctx, cli.Options{
		Config:         cfg,
		OutPrefix:      viper.GetString("out"),
		MinSuccessRate: viper.GetFloat64("min_success_rate") / 100,
		MetricsAddr:    viper.GetString("metrics_addr"),
		HistoryPath:    hist,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	if !passed {
		return errThreshold
	}
	return nil
}

// showHistory prints a table of runs, newest first, or the full summary
// of the run with the given ID.
func showHistory(out io.Writer, store *storage.Store, id string) error {
	if id != "" {
		item, err := store.Get(id)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	}

	items, err := store.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMODE\tURL\tREQUESTS\tSUCCESS")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f%%\n",
			it.ID,
			it.Timestamp.Format("2006-01-02 15:04:05"),
			it.Summary.Mode,
			it.Summary.Config.URL,
			it.Summary.Requests,
			it.Summary.SuccessRate*100,
		)
	}
	return w.Flush()
}

func runTUI(cfg runner.Config) error {
	var store *storage.Store
	if path, err := storage.DefaultPath(); err == nil {
		// The UI still works without history.
		if s, err := storage.NewStore(path); err == nil {
			store = s
			defer store.Close()
		}
	}

	m := app.NewModel(cfg, store)
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running oraclebench: %w", err)
	}
	return nil
}
