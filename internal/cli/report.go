package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgftp"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
	"github.com/shandysiswandi/vidstat/internal/report"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/metrics"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

type reportFlags struct {
	dir      string
	quota    int64
	owner    string
	date     string
	throttle bool
	push     bool
	ftp      bool
}

const reportExample = `  vidstat report --quota 3
  vidstat report --quota 4 --owner 中科 --date 2025-07-16 --push a.csv b.xlsx
  vidstat report --ftp --dir ./exports --push`

func newReportCommand(g *globalFlags) *cobra.Command {
	f := &reportFlags{}

	cmd := &cobra.Command{
		Use:     "report [files...]",
		Short:   "Summarize export files and optionally push the result to Feishu",
		Example: reportExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			defer cfg.Close()

			return runReport(cmd, cfg, f, args)
		},
	}

	cmd.Flags().StringVar(&f.dir, "dir", ".", "directory scanned for export files when no files are given")
	cmd.Flags().Int64Var(&f.quota, "quota", 0, "planned uploads per row (defaults to modules.report.default_quota)")
	cmd.Flags().StringVar(&f.owner, "owner", "", "owner written to the summary (defaults to file names)")
	cmd.Flags().StringVar(&f.date, "date", "", "report day as YYYY-MM-DD (defaults to file names, else today)")
	cmd.Flags().BoolVar(&f.throttle, "throttle", true, "count rate-limit outcomes from the 状态 column")
	cmd.Flags().BoolVar(&f.push, "push", false, "push the summary row to the Feishu summary table")
	cmd.Flags().BoolVar(&f.ftp, "ftp", false, "download export files from the ftp.* server into --dir first")

	return cmd
}

func runReport(cmd *cobra.Command, cfg pkgconfig.Config, f *reportFlags, args []string) error {
	ctx := cmd.Context()
	settings := report.LoadSettings(cfg)
	out := cmd.OutOrStdout()

	in := usecase.AnalyzeInput{Owner: f.owner, Quota: f.quota}
	if in.Quota == 0 && settings.Usecase.DefaultQuota == 0 {
		return errors.New("--quota is required when modules.report.default_quota is not set")
	}
	if f.date != "" {
		date, err := time.ParseInLocation(time.DateOnly, f.date, time.Local)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
		in.Date = date
	}
	if cmd.Flags().Changed("throttle") {
		in.Throttle = &f.throttle
	}

	if f.ftp {
		if err := downloadFromFTP(ctx, cfg, f.dir); err != nil {
			return err
		}
	}

	paths := args
	if len(paths) == 0 {
		found, err := detectFiles(f.dir)
		if err != nil {
			return err
		}
		if len(found) == 0 {
			return fmt.Errorf("no .csv or .xlsx files found in %s", f.dir)
		}
		fmt.Fprintf(out, "检测到的数据文件: %v\n", found)
		paths = found
	}

	files, err := readFiles(paths)
	if err != nil {
		return err
	}

	dep := usecase.Dependency{Config: settings.Usecase}
	if client := report.FeishuClient(settings); client != nil {
		dep.Bitable = client
	}
	if f.push {
		history, err := report.OpenHistory(ctx, settings)
		if err != nil {
			return err
		}
		defer history.Close()
		dep.History = history
	}
	uc := usecase.New(dep)

	result, err := uc.Summarize(ctx, in)
	if err != nil {
		return err
	}
	result.Meta.ID = pkguid.NewUUID().Generate()
	printReport(out, result)

	if !f.push {
		return nil
	}

	recordID, err := uc.Push(ctx, result)
	if err != nil {
		return fmt.Errorf("写入飞书多维表格失败: %w", err)
	}
	fmt.Fprintf(out, "数据写入成功！record_id=%s\n", recordID)

	return nil
}

func printReport(out io.Writer, r entity.Report) {
	for _, file := range r.Files {
		if file.Status != entity.FileStatusOK {
			fmt.Fprintf(out, "%s: 读取失败 (%s)\n", file.Name, file.Err)
			continue
		}
		fmt.Fprintf(out, "%s - 播放量: %d, 上传成功: %d\n", file.Name, file.Metrics.TotalViews, file.Metrics.TotalUploads)
	}

	t := r.Totals
	fmt.Fprintf(out, "归属：%s\n", r.Owner)
	fmt.Fprintf(out, "日期：%s\n", r.Date.Format(time.DateOnly))
	fmt.Fprintf(out, "总上传成功：%d\n", t.TotalUploads)
	fmt.Fprintf(out, "总播放量：%d\n", t.TotalViews)
	if r.Throttle {
		fmt.Fprintf(out, "总限流：%d\n", t.ThrottledCount)
		fmt.Fprintf(out, "总未限流：%d\n", t.NotThrottledCount)
		fmt.Fprintf(out, "总判断失败：%d\n", t.JudgmentFailedCount)
		fmt.Fprintf(out, "成功存活量：%d\n", t.SurviveCount)
		fmt.Fprintf(out, "存活率：%s\n", metrics.FormatRate(t.SurviveRate))
	}
	if r.OrderAmountKnown {
		fmt.Fprintf(out, "出单金额：%.2f\n", r.OrderAmount)
	}
}

// detectFiles lists data files directly under dir, sorted by name.
func detectFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !usecase.IsDataFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	return files, nil
}

func readFiles(paths []string) ([]entity.SourceFile, error) {
	files := make([]entity.SourceFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		files = append(files, entity.SourceFile{Name: filepath.Base(p), Data: data})
	}

	return files, nil
}

func downloadFromFTP(ctx context.Context, cfg pkgconfig.Config, dir string) error {
	client, err := pkgftp.Dial(ctx, pkgftp.Config{
		Address:   cfg.GetString("ftp.address"),
		User:      cfg.GetString("ftp.user"),
		Password:  cfg.GetString("ftp.password"),
		RemoteDir: cfg.GetString("ftp.dir"),
		Timeout:   cfg.GetDuration("ftp.timeout"),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	_, err = client.Download(ctx, dir, usecase.IsDataFile)
	return err
}
