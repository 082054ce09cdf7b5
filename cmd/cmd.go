package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/gatepass/internal"
)

var (
	configFile string
	baseURL    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "gatepass",
	Short:         "Gate pass requests and approvals",
	Long:          `Request, approve and download gate passes from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// loadConfig layers defaults, an optional config.yml, GATEPASS_* variables
// and finally command-line flags.
func loadConfig() (*internal.Config, error) {
	if os.Getenv("APP_ENV") == "production" {
		cfg := internal.LoadConfigFromEnv()
		applyFlags(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	setDefaults(v, internal.DefaultConfig())

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gatepass"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yml")
	}
	v.SetEnvPrefix("GATEPASS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	applyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// appear in no config file.
func setDefaults(v *viper.Viper, d *internal.Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("session.path", d.Session.Path)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("stub.port", d.Stub.Port)
	v.SetDefault("stub.database.driver", d.Stub.Database.Driver)
	v.SetDefault("stub.database.source", d.Stub.Database.Source)
	v.SetDefault("stub.access_secret", d.Stub.AccessSecret)
	v.SetDefault("stub.refresh_secret", d.Stub.RefreshSecret)
	v.SetDefault("stub.access_token_ttl", d.Stub.AccessTokenTTL)
	v.SetDefault("stub.refresh_token_ttl", d.Stub.RefreshTokenTTL)
	v.SetDefault("stub.read_timeout", d.Stub.ReadTimeout)
	v.SetDefault("stub.write_timeout", d.Stub.WriteTimeout)
}

func applyFlags(cfg *internal.Config) {
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// describeError prefers the detailed message of an application error.
func describeError(err error) string {
	if appErr, ok := internal.IsAppError(err); ok {
		return "error: " + appErr.GetDetailedMessage()
	}
	return "error: " + err.Error()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./config.yml or ~/.gatepass/config.yml)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "API base URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)
	rootCmd.AddCommand(dashboardCmd, createCmd, updateCmd, approveCmd, rejectCmd, downloadCmd)
	rootCmd.AddCommand(stubServerCmd)
}
