package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"onionbot/internal/telemetry"
)

func newLabelsCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:         "labels",
		Short:       "Show the labelling catalogue",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			record := telemetry.LabelSets()
			if jsonOut {
				return writeJSON(cmd, record)
			}
			rows := make([][]string, 0, len(record.Attributes))
			for _, name := range sortedKeys(record.Attributes) {
				set := record.Attributes[name]
				labels := make([]string, len(set))
				for i := range labels {
					labels[i] = set[strconv.Itoa(i)]
				}
				rows = append(rows, []string{name, strings.Join(labels, ", ")})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Set", "Labels"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
