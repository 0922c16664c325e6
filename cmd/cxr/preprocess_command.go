package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cxr/internal/manifest"
	"cxr/internal/preprocess"
)

func newPreprocessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Decode, resize, and normalize the source images into the array store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			journal, err := manifest.Open(cfg.Paths.ArrayRoot)
			if err != nil {
				return err
			}
			defer journal.Close()

			stage, err := preprocess.New(cfg, journal, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := stage.Run(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Preprocessed %d train and %d val subjects (%d written, %d already present)\n",
				result.TrainCount, result.ValCount, result.Written, result.Skipped)
			fmt.Fprintf(out, "Normalization stats: mean=%.6f std=%.6f over %d train images\n",
				result.Stats.Mean, result.Stats.Std, result.Stats.Count)
			return nil
		},
	}
}
