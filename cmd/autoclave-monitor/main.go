// Command autoclave-monitor tracks sterilization cycles from a live
// temperature feed or a built-in simulation and serves a dashboard.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/autoclave-monitor/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel, configPath string

	root := &cobra.Command{
		Use:          "autoclave-monitor",
		Short:        "Sterilization cycle monitor for autoclaves",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")

	// setup parses the shared flags and loads the layered config.
	setup := func(cmd *cobra.Command) (config.Config, *logrus.Logger, error) {
		log := logrus.New()
		log.SetOutput(cmd.ErrOrStderr())
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
		}
		log.SetLevel(level)

		cfg, err := config.Load(configPath)
		if err != nil {
			return cfg, nil, err
		}
		cfg.ApplyEnv(os.Getenv)
		if err := applyFlags(cmd, &cfg); err != nil {
			return cfg, nil, err
		}
		if err := cfg.Validate(); err != nil {
			return cfg, nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, log, nil
	}

	root.AddCommand(newRunCmd(setup), newIngestCmd(setup), newVersionCmd())
	return root
}

type setupFunc func(cmd *cobra.Command) (config.Config, *logrus.Logger, error)

func newRunCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the monitor loop, dashboard and publishers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return run(cfg, log)
		},
	}
	defaults := config.Default()
	f := cmd.Flags()
	f.Duration("tick", defaults.TickPeriod, "Tick period")
	f.String("source", defaults.Source, `Initial sample source ("live" or "simulation")`)
	f.String("feed-url", "", "Ingestion service base URL (overrides SERVER_URL)")
	f.String("http", defaults.HTTPAddr, "Dashboard address (empty to disable)")
	f.String("broker", "", "MQTT broker address (empty to disable)")
	f.Duration("heartbeat", defaults.MQTT.Heartbeat, "Heartbeat interval (0 to disable)")
	f.StringSlice("kafka-brokers", nil, "Kafka brokers for cycle export (empty to disable)")
	f.String("kafka-topic", defaults.Kafka.Topic, "Kafka topic for cycle export")
	f.Int("indicator-line", defaults.Indicator.Line, "GPIO line for the completion indicator (negative to disable)")
	f.Int("max-cycles", defaults.MaxCycles, "Cycles kept in memory (0 keeps all)")
	f.Int64("seed", defaults.Seed, "Simulation seed (0 seeds from the clock)")
	f.Bool("access-log", defaults.AccessLog, "Log every HTTP request")
	return cmd
}

func newIngestCmd(setup setupFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Serve the temperature ingestion endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd)
			if err != nil {
				return err
			}
			return runIngest(cfg, log)
		},
	}
	cmd.Flags().String("addr", config.Default().IngestAddr, "Listen address")
	cmd.Flags().Bool("access-log", false, "Log every HTTP request")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// applyFlags copies explicitly set flags over cfg so file and env values
// survive when a flag is left at its default.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && f.Lookup(name) != nil && f.Changed(name) {
			err = apply()
		}
	}
	set("tick", func() (e error) { cfg.TickPeriod, e = f.GetDuration("tick"); return })
	set("source", func() (e error) { cfg.Source, e = f.GetString("source"); return })
	set("feed-url", func() (e error) { cfg.FeedURL, e = f.GetString("feed-url"); return })
	set("http", func() (e error) { cfg.HTTPAddr, e = f.GetString("http"); return })
	set("broker", func() (e error) { cfg.MQTT.Broker, e = f.GetString("broker"); return })
	set("heartbeat", func() (e error) { cfg.MQTT.Heartbeat, e = f.GetDuration("heartbeat"); return })
	set("kafka-brokers", func() (e error) { cfg.Kafka.Brokers, e = f.GetStringSlice("kafka-brokers"); return })
	set("kafka-topic", func() (e error) { cfg.Kafka.Topic, e = f.GetString("kafka-topic"); return })
	set("indicator-line", func() (e error) { cfg.Indicator.Line, e = f.GetInt("indicator-line"); return })
	set("max-cycles", func() (e error) { cfg.MaxCycles, e = f.GetInt("max-cycles"); return })
	set("seed", func() (e error) { cfg.Seed, e = f.GetInt64("seed"); return })
	set("access-log", func() (e error) { cfg.AccessLog, e = f.GetBool("access-log"); return })
	set("addr", func() (e error) { cfg.IngestAddr, e = f.GetString("addr"); return })
	if err != nil {
		return fmt.Errorf("read flags: %w", err)
	}
	return nil
}
