package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deepak-highbeam/complaint-classifier/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "feedback",
		Short: "Label, train and evaluate a customer complaint classifier",
		Long: `feedback turns raw consumer complaints into a labeled dataset with ordered
keyword rules, then trains and evaluates a TF-IDF + Naive Bayes classifier
on it.`,
		PersistentPreRunE: a.initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.feedback/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print results as JSON")

	_ = a.v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(ingestCmd(a))
	rootCmd.AddCommand(sampleCmd(a))
	rootCmd.AddCommand(preprocessCmd(a))
	rootCmd.AddCommand(trainCmd(a))
	rootCmd.AddCommand(evaluateCmd(a))
	rootCmd.AddCommand(predictCmd(a))
	rootCmd.AddCommand(labelCmd(a))
	rootCmd.AddCommand(rulesCmd(a))
	rootCmd.AddCommand(runsCmd(a))

	return rootCmd
}

// configKey is the flag annotation naming the config key a flag overrides.
const configKey = "feedback_config_key"

// bindFlag ties a command flag to a config key. Only the flags of the
// command being executed are bound, so two commands may share a key.
func bindFlag(cmd *cobra.Command, flag, key string) {
	_ = cmd.Flags().SetAnnotation(flag, configKey, []string{key})
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys, ok := f.Annotations[configKey]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return fmt.Errorf("bind flags: %w", bindErr)
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := setupLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	return nil
}

func setupLogging(c config.LoggingConfig) error {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", c.Level)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch c.Format {
	case "console":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

func newApp() *app {
	return &app{v: viper.New()}
}
