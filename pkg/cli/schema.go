package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"luna/pkg/schema"
)

func init() {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the turn endpoint",
		Args:  cobra.NoArgs,
		RunE:  runSchema,
	}
	cmd.Flags().String("part", "", "Only print one of: request, response, error")

	RootCmd.AddCommand(cmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	part, _ := cmd.Flags().GetString("part")

	var v any = schema.Document()
	if part != "" {
		s, ok := schema.Document()[part]
		if !ok {
			return fmt.Errorf("unknown schema part %q", part)
		}
		v = s
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
