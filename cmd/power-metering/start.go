package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/operator-framework/power-metering/pkg/gateway"
	"github.com/operator-framework/power-metering/pkg/promquery"
	"github.com/operator-framework/power-metering/pkg/usage"
)

const (
	envPrefix = "POWER_METERING"
	// promHostEnv is read when neither --prometheus-host nor
	// POWER_METERING_PROMETHEUS_HOST are set.
	promHostEnv = "PROMETHEUS_HOST"
)

var (
	// cfg is the config for the gateway
	cfg        gateway.Config
	configFile string

	logLevelStr         string
	logFullTimestamp    bool
	logDisableTimestamp bool
)

var rootCmd = &cobra.Command{
	Use:   "power-metering",
	Short: "Daily power usage reports from Prometheus energy readings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Help()
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts the power usage HTTP gateway",
	Run:   startGateway,
}

func AddCommands() {
	rootCmd.AddCommand(startCmd)
}

func init() {
	// globally set time to UTC
	time.Local = time.UTC

	startCmd.Flags().StringVar(&configFile, "config", "", "path to a YAML file providing values for flags that are not set on the command line or in the environment")

	startCmd.Flags().StringVar(&logLevelStr, "log-level", log.InfoLevel.String(), "log level")
	startCmd.Flags().BoolVar(&logFullTimestamp, "log-timestamp", true, "log full timestamp if true, otherwise log time since startup")
	startCmd.Flags().BoolVar(&logDisableTimestamp, "disable-timestamp", false, "disable timestamp logging")

	startCmd.Flags().StringVar(&cfg.ListenAddress, "listen-address", gateway.DefaultListenAddress, "the address the HTTP API listens on")
	startCmd.Flags().StringVar(&cfg.MetricsListenAddress, "metrics-listen-address", gateway.DefaultMetricsListenAddress, "the address the Prometheus metrics endpoint listens on")
	startCmd.Flags().StringVar(&cfg.PprofListenAddress, "pprof-listen-address", gateway.DefaultPprofListenAddress, "the address the pprof server listens on, empty disables it")
	startCmd.Flags().DurationVar(&cfg.TimezoneOffset, "timezone-offset", usage.DefaultTimezoneOffset, "offset from UTC used to interpret the date and time request parameters")

	startCmd.Flags().StringVar(&cfg.PrometheusConfig.Address, "prometheus-host", "", fmt.Sprintf("the URL or host:port for connecting to Prometheus, defaults to $%s", promHostEnv))
	startCmd.Flags().BoolVar(&cfg.PrometheusConfig.SkipTLSVerify, "prometheus-skip-tls-verify", false, "Skip TLS verification")
	startCmd.Flags().StringVar(&cfg.PrometheusConfig.BearerToken, "prometheus-bearer-token", "", "Bearer token to authenticate against Prometheus.")
	startCmd.Flags().StringVar(&cfg.PrometheusConfig.CAFile, "prometheus-ca-file", "", "path to a CA bundle used to verify the Prometheus server certificate")

	startCmd.Flags().StringVar(&cfg.QueryConfig.MetricName, "metric-name", promquery.DefaultMetricName, "name of the cumulative energy metric, in kWh")
	startCmd.Flags().DurationVar(&cfg.QueryConfig.Lookback, "lookback", promquery.DefaultLookback, "how far before the requested instant the latest reading is searched for")
	startCmd.Flags().DurationVar(&cfg.QueryConfig.Timeout, "query-timeout", promquery.DefaultQueryTimeout, "timeout of each Prometheus query")

	startCmd.Flags().BoolVar(&cfg.APITLSConfig.UseTLS, "use-tls", false, "If true, uses TLS to secure HTTP API traffic")
	startCmd.Flags().StringVar(&cfg.APITLSConfig.TLSCert, "tls-cert", "", "If use-tls is true, specifies the path to the TLS certificate.")
	startCmd.Flags().StringVar(&cfg.APITLSConfig.TLSKey, "tls-key", "", "If use-tls is true, specifies the path to the TLS private key.")

	startCmd.Flags().BoolVar(&cfg.MetricsTLSConfig.UseTLS, "metrics-use-tls", false, "If true, uses TLS to secure Prometheus Metrics endpoint traffic")
	startCmd.Flags().StringVar(&cfg.MetricsTLSConfig.TLSCert, "metrics-tls-cert", "", "If metrics-use-tls is true, specifies the path to the TLS certificate to use for the Metrics endpoint.")
	startCmd.Flags().StringVar(&cfg.MetricsTLSConfig.TLSKey, "metrics-tls-key", "", "If metrics-use-tls is true, specifies the path to the TLS private key to use for the Metrics endpoint.")
}

func main() {
	AddCommands()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Fatalf("error executing command: %v", err)
	}
}

func startGateway(cmd *cobra.Command, args []string) {
	if err := loadFlags(cmd.Flags()); err != nil {
		log.WithError(err).Fatal("unable to load configuration")
	}
	logger := newLogger()

	if cfg.PrometheusConfig.Address == "" {
		logger.Fatalf("no Prometheus address configured, set --prometheus-host or $%s", promHostEnv)
	}

	signalStopCtx := setupSignals()
	runGateway(logger, cfg, signalStopCtx)
}

func runGateway(logger log.FieldLogger, cfg gateway.Config, ctx context.Context) {
	gw, err := gateway.New(logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("unable to setup power-metering gateway")
	}
	if err = gw.Run(ctx); err != nil {
		logger.WithError(err).Fatal("error occurred while the power-metering gateway was running")
	}
	logger.Infof("power-metering gateway has stopped")
}

// loadFlags fills the flags that were not set on the command line, first
// from the environment and then from the config file. PROMETHEUS_HOST is
// used last for the Prometheus address.
func loadFlags(fs *pflag.FlagSet) error {
	if err := SetFlagsFromEnv(fs, envPrefix); err != nil {
		return fmt.Errorf("error setting flags from environment variables: %v", err)
	}
	if configFile != "" {
		if err := SetFlagsFromConfigFile(fs, configFile); err != nil {
			return err
		}
	}
	if !fs.Changed("prometheus-host") {
		if host := os.Getenv(promHostEnv); host != "" {
			if err := fs.Set("prometheus-host", host); err != nil {
				return fmt.Errorf("invalid value %q for %s: %v", host, promHostEnv, err)
			}
		}
	}
	return nil
}

// SetFlagsFromEnv parses all registered flags in the given flagset,
// and if they are not already set it attempts to set their values from
// environment variables. Environment variables take the name of the flag but
// are UPPERCASE, and any dashes are replaced by underscores. Environment
// variables additionally are prefixed by the given string followed by
// and underscore. For example, if prefix=PREFIX: some-flag => PREFIX_SOME_FLAG
func SetFlagsFromEnv(fs *pflag.FlagSet, prefix string) (err error) {
	alreadySet := make(map[string]bool)
	fs.Visit(func(f *pflag.Flag) {
		alreadySet[f.Name] = true
	})
	fs.VisitAll(func(f *pflag.Flag) {
		if !alreadySet[f.Name] {
			key := prefix + "_" + strings.ToUpper(strings.Replace(f.Name, "-", "_", -1))
			val := os.Getenv(key)
			if val != "" {
				if serr := fs.Set(f.Name, val); serr != nil {
					err = fmt.Errorf("invalid value %q for %s: %v", val, key, serr)
				}
			}
		}
	})
	return err
}

func setupSignals() context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := <-sigs
		log.Infof("got signal %s, performing shutdown", sig)
		cancel()
	}()
	return ctx
}

func newLogger() log.FieldLogger {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:    logFullTimestamp,
		DisableTimestamp: logDisableTimestamp,
	})
	logger := log.WithFields(log.Fields{
		"app": "power-metering",
	})
	logLevel, err := log.ParseLevel(logLevelStr)
	if err != nil {
		logger.WithError(err).Fatalf("invalid log level: %s", logLevelStr)
	}
	logger.Infof("setting log level to %s", logLevel.String())
	logger.Logger.Level = logLevel
	return logger
}
