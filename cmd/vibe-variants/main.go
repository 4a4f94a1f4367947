// Package main provides the vibe-variants command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const configName = ".vibe-variants"

func main() {
	os.Exit(run())
}

func run() int {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		logJSON bool
	)

	cmd := &cobra.Command{
		Use:   "vibe-variants",
		Short: "Variant merge-upsert store",
		Long: `vibe-variants classifies genomic variants, derives their canonical keys and
merges the evidence of every file that reports them into one document per
variant in DuckDB, MongoDB or Elasticsearch.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log JSON to stderr")
	viper.BindPFlag("log.verbose", cmd.PersistentFlags().Lookup("verbose")) //nolint:errcheck
	viper.BindPFlag("log.json", cmd.PersistentFlags().Lookup("log-json"))   //nolint:errcheck

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newClassifyFileCmd())
	cmd.AddCommand(newKeyCmd())
	cmd.AddCommand(newLookupCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig reads ~/.vibe-variants.yaml if present. Environment variables
// prefixed with VIBE_VARIANTS_ override file values.
func initConfig() error {
	setDefaults()
	viper.SetEnvPrefix("VIBE_VARIANTS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.SetConfigFile(filepath.Join(home, configName+".yaml"))
	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(viper.ConfigFileUsed()); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds the command logger from the log.* settings.
func newLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if viper.GetBool("log.json") {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	if viper.GetBool("log.verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// bindFlags binds config keys to the flags of cmd. Binding happens when the
// command runs, so commands sharing a key do not override each other.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// usageError marks errors caused by invalid arguments.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
