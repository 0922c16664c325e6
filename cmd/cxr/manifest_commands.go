package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"cxr/internal/manifest"
)

func newManifestCommand(ctx *commandContext) *cobra.Command {
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect the preprocessing journal",
	}

	manifestCmd.AddCommand(newManifestListCommand(ctx))
	manifestCmd.AddCommand(newManifestStatusCommand(ctx))
	manifestCmd.AddCommand(newManifestClearCommand(ctx))

	return manifestCmd
}

func newManifestListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journaled subjects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var filter []manifest.Status
			if statusFlag != "" {
				status, ok := manifest.ParseStatus(statusFlag)
				if !ok {
					return fmt.Errorf("unknown status %q (expected one of %v)", statusFlag, manifest.AllStatuses())
				}
				filter = append(filter, status)
			}

			journal, err := manifest.Open(cfg.Paths.ArrayRoot)
			if err != nil {
				return err
			}
			defer journal.Close()

			items, err := journal.List(cmd.Context(), filter...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No journaled subjects")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.ArrayPath
				if item.Status == manifest.StatusFailed {
					detail = item.ErrorMessage
				}
				rows = append(rows, []string{
					item.SubjectID,
					string(item.Split),
					strconv.Itoa(item.Label),
					string(item.Status),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Subject", "Split", "Label", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Only show subjects in this status")
	return cmd
}

func newManifestStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize journal counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			journal, err := manifest.Open(cfg.Paths.ArrayRoot)
			if err != nil {
				return err
			}
			defer journal.Close()

			summary, err := journal.Summarize(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Total", "Pending", "Written", "Failed"},
				[][]string{{
					strconv.Itoa(summary.Total),
					strconv.Itoa(summary.Pending),
					strconv.Itoa(summary.Written),
					strconv.Itoa(summary.Failed),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newManifestClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every journal row",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			journal, err := manifest.Open(cfg.Paths.ArrayRoot)
			if err != nil {
				return err
			}
			defer journal.Close()

			if err := journal.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Journal cleared")
			return nil
		},
	}
}
