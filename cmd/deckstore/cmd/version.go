package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/deckstore/internal/output"
	"github.com/Aman-CERP/deckstore/internal/store"
	"github.com/Aman-CERP/deckstore/pkg/version"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	var shortOutput bool

	cmd := &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Long:        `Print version information including git commit, build date, schema version and Go version.`,
		Annotations: noSetup,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Short output takes precedence
			if shortOutput {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}

			if jsonOutput {
				info := struct {
					version.BuildInfo
					SchemaVersion int `json:"schema_version"`
				}{version.GetInfo(), store.CurrentSchemaVersion}
				return output.New(cmd.OutOrStdout()).JSON(info)
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\nschema version %d\n", version.String(), store.CurrentSchemaVersion)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
