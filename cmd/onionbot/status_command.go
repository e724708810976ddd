package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"onionbot/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show controller, session and classifier status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				agg, err := client.Classification(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"status": status, "classification": agg})
				}
				out := cmd.OutOrStdout()
				renderStatus(out, status, shouldColorize(out))
				fmt.Fprintln(out)
				rows := make([][]string, 0, len(agg))
				for _, name := range sortedKeys(agg) {
					rows = append(rows, []string{name, agg[name].Label, agg[name].Confidence})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No classification yet")
					return nil
				}
				fmt.Fprint(out, renderTable([]string{"Model", "Label", "Confidence"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func renderStatus(out io.Writer, status *api.DaemonStatus, colorize bool) {
	printSection(out, "Controller", colorize)
	daemonKind := statusOK
	if !status.Running {
		daemonKind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Daemon", daemonKind, "pid "+strconv.Itoa(status.PID), colorize))
	fmt.Fprintln(out, renderStatusLine("Models", statusInfo, fmt.Sprint(status.Models), colorize))
	storageKind := statusOK
	if status.PendingUploads > 0 {
		storageKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Storage", storageKind,
		fmt.Sprintf("%s (%d pending)", status.Storage, status.PendingUploads), colorize))
	fmt.Fprintln(out)

	printSection(out, "Session", colorize)
	sess := status.Session
	if !sess.Active {
		fmt.Fprintln(out, renderStatusLine("Session", statusInfo, "idle", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Session", statusOK, sess.Name, colorize))
		fmt.Fprintln(out, renderStatusLine("Active label", statusInfo, sess.ActiveLabel, colorize))
		fmt.Fprintln(out, renderStatusLine("Measurements", statusInfo, strconv.Itoa(sess.MeasurementID), colorize))
		fmt.Fprintln(out, renderStatusLine("Started", statusInfo, sess.StartedAt, colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Frame interval", statusInfo, formatSeconds(sess.FrameIntervalSeconds), colorize))
	fmt.Fprintln(out)

	printSection(out, "Classifier", colorize)
	w := status.Worker
	workerKind := statusOK
	if w.State != "running" {
		workerKind = statusWarn
	}
	fmt.Fprintln(out, renderStatusLine("Worker", workerKind, w.State, colorize))
	fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo,
		fmt.Sprintf("%d submitted, %d completed, %d queued", w.Submitted, w.Completed, w.QueueDepth), colorize))
	if w.Skips > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, strconv.FormatUint(w.Skips, 10), colorize))
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "s"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
