package cmd

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/repository"
)

// sweep is the one-shot counterpart of the in-process sweeper: fail every
// execution stuck in RUNNING past the stale threshold, then exit. Meant
// for cron or manual recovery after a fleet-wide crash.
func sweep(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "fail executions stuck in RUNNING, then exit",
		Run: func(cmd *cobra.Command, args []string) {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			ctx := logger.WithContext(context.Background())

			repo := repository.NewRepo(config.DB)
			swept, err := repo.FailStale(ctx, config.Pipeline.StaleAfter)
			if err != nil {
				logger.Fatal().Err(err).Msg("stale execution sweep failed")
			}
			logger.Info().Int64("count", swept).Msg("stale executions failed")
		},
	}
}
