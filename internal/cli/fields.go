package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/vidstat/internal/report"
)

func newFieldsCommand(g *globalFlags) *cobra.Command {
	var lab bool

	cmd := &cobra.Command{
		Use:   "fields",
		Short: "List the columns of the Feishu summary (or lab) table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer cfg.Close()

			settings := report.LoadSettings(cfg)
			client := report.FeishuClient(settings)
			if client == nil {
				return errors.New("feishu.app_id and feishu.app_secret are required")
			}

			app, table := settings.Usecase.SummaryApp, settings.Usecase.SummaryTable
			if lab {
				app, table = settings.Usecase.LabApp, settings.Usecase.LabTable
			}
			if app == "" {
				return errors.New("no app token configured for this table")
			}

			ctx := cmd.Context()
			if table == "" {
				if table, err = client.FirstTableID(ctx, app); err != nil {
					return err
				}
			}

			fields, err := client.ListFields(ctx, app, table)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "table_id: %s\n", table)
			for _, field := range fields {
				fmt.Fprintf(out, "%s\t%s\ttype=%d\n", field.FieldID, field.FieldName, field.Type)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&lab, "lab", false, "list the lab order table instead of the summary table")

	return cmd
}
