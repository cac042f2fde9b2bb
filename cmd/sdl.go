package cmd

import (
	"io"

	log "github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wundergraph/pgfederation/pkg/federation"
)

func newSDLCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "sdl",
		Short:   "sdl prints the federated schema the service advertises through _service",
		Example: "pgfederation sdl --catalog catalog.yaml --typedefs extensions.graphql > subgraph.graphql",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return printSDL(cfg, cmd.OutOrStdout())
		},
	}
}

func printSDL(cfg Config, out io.Writer) error {
	_, schema, err := buildSchema(cfg, log.NoopLogger)
	if err != nil {
		return err
	}
	sdl, err := federation.PrintFederatedSchema(schema.Schema)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, sdl)
	return err
}
