package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cxr/internal/evaluate"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var thresholds []float64

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the best checkpoint on the validation split",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if len(thresholds) > 0 {
				cfg.Evaluate.Thresholds = thresholds
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := evaluate.New(cfg, logger).Run(runCtx)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), evaluate.Render(result))
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&thresholds, "threshold", nil, "Decision thresholds to score (repeatable)")
	return cmd
}
