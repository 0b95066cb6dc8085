package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/candigo/candigo/internal/notify"
	"github.com/candigo/candigo/internal/pipeline"
	"github.com/candigo/candigo/internal/profile"
	"github.com/candigo/candigo/internal/scoring"
	"github.com/candigo/candigo/internal/source"
)

const (
	app = "candigo"
)

type Config struct {
	Profile  *profile.Profile `mapstructure:"profile"`
	Search   *source.Query    `mapstructure:"search"`
	Scoring  *scoring.Config  `mapstructure:"scoring"`
	Pipeline *pipeline.Config `mapstructure:"pipeline"`
	Sources  *SourcesConfig   `mapstructure:"sources"`
	Letter   *LetterConfig    `mapstructure:"letter"`
	Notify   *NotifyConfig    `mapstructure:"notify"`
	Store    *StoreConfig     `mapstructure:"store"`
	Outbox   *OutboxConfig    `mapstructure:"outbox"`
	Daemon   *DaemonConfig    `mapstructure:"daemon"`
}

type SourcesConfig struct {
	FranceTravail *FranceTravailConfig `mapstructure:"france-travail"`
}

type FranceTravailConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	ClientID         string `mapstructure:"client-id"`
	ClientSecretFile string `mapstructure:"client-secret-file"`
}

type LetterConfig struct {
	Provider string `mapstructure:"provider"`
	// Fallback enables the template letter after the provider has
	// exhausted its retries.
	Fallback bool          `mapstructure:"fallback"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type NotifyConfig struct {
	Email        *notify.SMTPConfig `mapstructure:"email"`
	PasswordFile string             `mapstructure:"password-file"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type OutboxConfig struct {
	Dir string `mapstructure:"dir"`
}

type DaemonConfig struct {
	// Every is a Go duration between cycles, e.g. "6h".
	Every string `mapstructure:"every"`
	// At lists fixed daily trigger times in HH:MM, local time.
	At []string `mapstructure:"at"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "candigo searches job boards, scores postings against your profile and drives applications end to end",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("gemini-api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("smtp-password-file", "SMTP_PASSWORD_FILE"); err != nil {
		log.Fatalf("binding SMTP_PASSWORD_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is candigo.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config needed only for commands that run the engine.
	if runCmd.CalledAs() == "" && daemonCmd.CalledAs() == "" &&
		reviewCmd.CalledAs() == "" && pruneCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return config, nil
}
