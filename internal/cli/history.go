package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/vidstat/internal/report"
	"github.com/shandysiswandi/vidstat/internal/report/metrics"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var (
		owner string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show summaries pushed to Feishu, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer cfg.Close()

			ctx := cmd.Context()
			history, err := report.OpenHistory(ctx, report.LoadSettings(cfg))
			if err != nil {
				return err
			}
			defer history.Close()

			result, err := usecase.New(usecase.Dependency{History: history}).History(ctx, owner, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, sub := range result.Items {
				fmt.Fprintf(out, "%s\t%s\t上传:%d\t播放:%d\t存活率:%s\t%s\n",
					time.UnixMilli(sub.DateMillis).Format(time.DateOnly),
					sub.Owner,
					sub.Uploads,
					sub.Views,
					metrics.FormatRate(sub.SurviveRate),
					sub.RecordID,
				)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "only show this owner")
	cmd.Flags().IntVar(&limit, "limit", usecase.DefaultHistoryLimit, "number of rows (1-100)")

	return cmd
}
