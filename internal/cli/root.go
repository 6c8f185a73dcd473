package cli

import (
	"context"
	"fmt"
	"os"

	"wevolve/internal/common"
	"wevolve/internal/config"
	"wevolve/internal/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// skipConfig marks commands that run without loading configuration
const skipConfig = "wevolve/skip-config"

var rootFlags struct {
	configFile string
	backendURL string
	format     string
	output     string
}

var rootCmd = &cobra.Command{
	Use:   "wevolve",
	Short: "Turn a resume into a reviewed profile, a skill gap report and job matches",
	Long: `Wevolve uploads a PDF resume to the parsing backend, normalizes the
extracted profile and lets you correct it before saving. The stored profile
drives skill gap analysis against a target role and job matching.

Run "wevolve serve" for the page routes, or use the commands below directly.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

// Execute runs the command tree. Configuration is loaded per command so that
// flags can override file and environment values.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configFile, "config", "", "Config file (default: ./config.yaml, $HOME/.wevolve/config.yaml)")
	pf.StringVar(&rootFlags.backendURL, "backend-url", "", "Backend base URL (overrides config)")
	pf.StringVar(&rootFlags.format, "format", "", "Output format: json, text, or markdown")
	pf.StringVarP(&rootFlags.output, "output", "o", "", "Output file path (default: stdout)")

	_ = rootCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return config.Default().App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(gapCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadRuntime binds flags, loads configuration and attaches config and a
// stderr logger to the command context.
func loadRuntime(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipConfig] == "true" {
		return nil
	}

	loader := config.NewLoader()
	loader.SetConfigFile(rootFlags.configFile)
	if cmd != serveCmd {
		loader.Quiet()
	}

	bindings := map[string]*pflag.Flag{
		"backend.baseURL": cmd.Root().PersistentFlags().Lookup("backend-url"),
	}
	if cmd == serveCmd {
		bindings["server.host"] = cmd.Flags().Lookup("host")
		bindings["server.port"] = cmd.Flags().Lookup("port")
	}
	for key, flag := range bindings {
		if err := loader.Viper().BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	level, err := errors.ParseLevel(cfg.App.LogLevel)
	if err != nil {
		return err
	}
	// stdout carries command output
	logger := errors.NewLoggerWithWriter(os.Stderr, level)

	ctx := context.WithValue(cmd.Context(), configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	cmd.SetContext(ctx)

	logger.Debug("Configuration loaded",
		"command", cmd.CommandPath(),
		"backend", cfg.Backend.BaseURL,
		"store_driver", cfg.Store.Driver)
	return nil
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, fmt.Errorf("config not found in context")
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, fmt.Errorf("logger not found in context")
}

// commandConfig resolves the --format and --output flags against config
func commandConfig(cfg *config.Config) (common.CommandConfig, error) {
	format, err := common.ResolveFormat(rootFlags.format, cfg.App.DefaultFormat, cfg.App.SupportedFormats)
	if err != nil {
		return common.CommandConfig{}, err
	}
	return common.CommandConfig{
		OutputFile:   rootFlags.output,
		OutputFormat: format,
	}, nil
}
