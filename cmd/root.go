package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "PGFEDERATION"
	configName = "pgfederation"
)

// NewRootCommand returns the pgfederation command tree. Flags can also be set
// with PGFEDERATION_* environment variables or a YAML config file. Without
// --config, pgfederation.yaml is looked up in the working directory and in
// ~/.config.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var configFile string
	rootCmd := &cobra.Command{
		Use:   "pgfederation",
		Short: "pgfederation serves a database catalog as an Apollo Federation subgraph",
		Long: `pgfederation turns the relations described in a catalog file into a GraphQL schema,
annotates every relation with a primary key as a federated entity and serves
the _entities and _service entry points a federation gateway relies on.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if configFile != "" {
				v.SetConfigFile(configFile)
				return v.ReadInConfig()
			}
			return readDefaultConfig(v)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML file holding flag values (optional)")
	rootCmd.PersistentFlags().StringSlice("catalog", nil, "catalog files describing the relations to serve (required)")
	rootCmd.PersistentFlags().StringSlice("typedefs", nil, "GraphQL files extending the generated schema (optional)")
	rootCmd.PersistentFlags().String("log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(newSDLCommand(v), newServeCommand(v))
	return rootCmd
}

func readDefaultConfig(v *viper.Viper) error {
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config"))
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return nil
	}
	return err
}

// Execute runs the command tree against os.Args.
func Execute() error {
	return NewRootCommand().Execute()
}
