package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"onionbot/internal/api"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Start, stop and relabel capture sessions",
	}

	var name string
	var label string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start a capture session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sess, err := client.StartSession(cmd.Context(), api.SessionStartRequest{Name: name, ActiveLabel: label})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s started (label %s)\n", sess.Name, sess.ActiveLabel)
				return nil
			})
		},
	}
	startCmd.Flags().StringVar(&name, "name", "", "Session name (defaults to a timestamp)")
	startCmd.Flags().StringVar(&label, "label", "", "Initial active label")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sess, err := client.StopSession(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s stopped after %d measurements\n", sess.Name, sess.MeasurementID)
				return nil
			})
		},
	}

	labelCmd := &cobra.Command{
		Use:   "label <label>",
		Short: "Change the label applied to subsequent captures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				sess, err := client.SetLabel(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active label: %s\n", sess.ActiveLabel)
				return nil
			})
		},
	}

	sessionCmd.AddCommand(startCmd, stopCmd, labelCmd)
	return sessionCmd
}

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one measurement in the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Capture(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				attrs := resp.Record.Attributes
				fmt.Fprintf(out, "Measurement %d (%s) label %s\n", attrs.MeasurementID, attrs.TimeStamp, attrs.ActiveLabel)
				printURL(out, "Camera", attrs.CameraFilepath)
				printURL(out, "Thermal", attrs.ThermalFilepath)
				if resp.Error != "" {
					return fmt.Errorf("meta record not saved: %s", resp.Error)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func printURL(out io.Writer, label string, url *string) {
	value := "none"
	if url != nil {
		value = *url
	}
	fmt.Fprintf(out, "  %-8s %s\n", label+":", value)
}

func newIntervalCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "interval <seconds>",
		Short: "Set the pause between automatic captures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.ParseFloat(args[0], 64)
			if err != nil || seconds <= 0 {
				return fmt.Errorf("interval must be a positive number of seconds, got %q", args[0])
			}
			return ctx.withClient(func(client *api.Client) error {
				sess, err := client.SetInterval(cmd.Context(), seconds)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Frame interval: %s\n", formatSeconds(sess.FrameIntervalSeconds))
				return nil
			})
		},
	}
}
