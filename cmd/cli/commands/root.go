package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/buildbuddy/engine/pkg/client"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// flag names
const (
	flagServer = "server"
	flagConfig = "config"
)

// settings keys
const (
	keyServer = "server"
	keyToken  = "token"
)

var (
	apiClient client.Client
	settings  = viper.New()
	cfgFile   string
)

// RootCmd is the buildbuddy command.
var RootCmd = &cobra.Command{
	Use:   "buildbuddy",
	Short: "Plan a hackathon project from the terminal",
	Long: `buildbuddy walks through the five planning steps: hackathon analysis,
project ideas, execution plan, build guide and deployment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadSettings(cmd); err != nil {
			return err
		}
		c, err := client.NewClient(&client.Options{
			BaseURL: settings.GetString(keyServer),
			Token:   settings.GetString(keyToken),
		})
		if err != nil {
			return err
		}
		apiClient = c
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringP(flagServer, "s", client.DefaultBaseURL, "API server address (env: BUILDBUDDY_SERVER)")
	RootCmd.PersistentFlags().StringVar(&cfgFile, flagConfig, "", "settings file (default $XDG_CONFIG_HOME/buildbuddy/cli.yaml)")

	RootCmd.AddCommand(
		loginCmd(),
		logoutCmd(),
		registerCmd(),
		statusCmd(),
		stepCmd(),
		continueCmd(),
		analyzeCmd(),
		ideasCmd(),
		selectCmd(),
		planCmd(),
		guideCmd(),
		toggleCmd(),
		finishCmd(),
		deployCmd(),
		exportCmd(),
	)
}

func settingsPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "buildbuddy", "cli.yaml"), nil
}

// loadSettings applies flag > env > settings file > default.
func loadSettings(cmd *cobra.Command) error {
	_ = godotenv.Load()

	path, err := settingsPath()
	if err != nil {
		return err
	}
	settings.SetConfigFile(path)
	settings.SetConfigType("yaml")
	settings.SetEnvPrefix("BUILDBUDDY")
	settings.AutomaticEnv()
	settings.SetDefault(keyServer, client.DefaultBaseURL)
	if err := settings.BindPFlag(keyServer, cmd.Flags().Lookup(flagServer)); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		if err := settings.ReadInConfig(); err != nil {
			return fmt.Errorf("read settings: %w", err)
		}
	}
	return nil
}

func saveSettings() error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return settings.WriteConfigAs(path)
}

// printYAML writes v for humans.
func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}
