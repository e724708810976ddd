package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"onionbot/internal/api"
	"onionbot/internal/journal"
	"onionbot/internal/telemetry"
)

func newMetaCommand(ctx *commandContext) *cobra.Command {
	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Inspect and validate meta records",
	}

	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the newest meta record from the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				record, err := client.LatestMeta(cmd.Context())
				if err != nil {
					return err
				}
				return writeJSON(cmd, record)
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <session>",
		Short: "List journaled records of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			j, err := journal.Open(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer j.Close()
			entries, err := j.ListSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No records for session %s\n", args[0])
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.Itoa(e.MeasurementID), e.TimeStamp, e.ActiveLabel,
					yesNo(e.CameraPath != ""), yesNo(e.Persisted), yesNo(e.Uploaded),
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Timestamp", "Label", "Camera", "Saved", "Uploaded"}, rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:         "validate <file>...",
		Short:       "Check meta record files against the record schema",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			invalid := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err == nil {
					err = telemetry.ValidateRecord(data)
				}
				if err != nil {
					invalid++
					fmt.Fprintf(out, "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: valid\n", path)
			}
			if invalid > 0 {
				return errors.New(strconv.Itoa(invalid) + " invalid record file(s)")
			}
			return nil
		},
	}

	metaCmd.AddCommand(latestCmd, listCmd, validateCmd)
	return metaCmd
}
