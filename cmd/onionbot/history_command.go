package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"onionbot/internal/api"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classification results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				entries, err := client.ClassificationHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No classifications recorded")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					parts := make([]string, 0, len(entry.Classification))
					for _, model := range sortedKeys(entry.Classification) {
						parts = append(parts, model+"="+entry.Classification[model].Label)
					}
					rows = append(rows, []string{entry.CompletedAt, filepath.Base(entry.ImagePath), strings.Join(parts, " ")})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Completed", "Image", "Result"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}
