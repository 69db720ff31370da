package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rpggio/salesportal/internal/config"
)

const (
	configFlag  = "config"
	envFileFlag = "env-file"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Role-gated sales reporting portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(),
		newMigrateCommand(),
		newImportCommand(),
		newHashPasswordCommand(),
		newEventsCommand(),
	)
	return root
}

// configFlags returns a fresh set of the flags that locate configuration.
func configFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		configFlag: &cobraflags.StringFlag{
			Name:  configFlag,
			Value: os.Getenv("PORTAL_CONFIG_PATH"),
			Usage: "Path to the YAML config file (default $PORTAL_CONFIG_PATH)",
		},
		envFileFlag: &cobraflags.StringFlag{
			Name:  envFileFlag,
			Value: ".env",
			Usage: "Dotenv file loaded into the environment before reading config",
		},
	}
}

// loadConfig applies the dotenv file, if any, then loads configuration.
func loadConfig(flags map[string]cobraflags.Flag) (config.Config, error) {
	if envFile := flags[envFileFlag].GetString(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return config.LoadFrom(flags[configFlag].GetString())
}
