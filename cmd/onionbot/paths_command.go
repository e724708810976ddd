package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"onionbot/internal/daemonrun"
)

func newPathsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show the files and directories the controller uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Config", ctx.configPath},
				{"Data", cfg.Paths.DataDir},
				{"Models", cfg.Paths.ModelsDir},
				{"Logs", cfg.Paths.LogDir},
				{"Log file", filepath.Join(cfg.Paths.LogDir, "onionbot.log")},
				{"Journal", cfg.JournalPath()},
				{"Lock", cfg.LockPath()},
				{"PID file", daemonrun.PIDPath(cfg)},
				{"Spool", valueOr(cfg.Capture.SpoolDir, "-")},
				{"API", ctx.baseURL()},
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable([]string{"Name", "Path"}, rows, nil))
			return nil
		},
	}
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
