package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cxr/internal/training"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	var epochs int

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train the classifier on the preprocessed arrays",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if epochs > 0 {
				cfg.Training.Epochs = epochs
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := training.New(cfg, logger).Run(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s finished after %d epochs\n", summary.RunID, len(summary.Epochs))
			if summary.BestEpoch > 0 {
				fmt.Fprintf(out, "Best %s %.4f at epoch %d; checkpoints in %s\n",
					cfg.Training.Monitor, summary.BestValue, summary.BestEpoch, summary.CheckpointDir)
			}
			fmt.Fprintf(out, "Epoch metrics appended to %s\n", summary.RunLogPath)
			return nil
		},
	}

	cmd.Flags().IntVar(&epochs, "epochs", 0, "Override the configured epoch count")
	return cmd
}
