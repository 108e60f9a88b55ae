package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fauli/dawidx/internal/catalog"
	"github.com/fauli/dawidx/internal/pipeline"
	"github.com/fauli/dawidx/internal/plugin"
	"github.com/fauli/dawidx/internal/progress"
	"github.com/fauli/dawidx/internal/util"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan configured roots and update the catalog",
	Long: `Scan walks every configured root directory, skips projects whose content
the catalog already has current, parses the rest, and commits the batch in
a single transaction.`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	roots := viper.GetStringSlice("paths")
	if len(roots) == 0 {
		return fmt.Errorf("no root directories configured (use --paths or set in config)")
	}

	verbose := viper.GetBool("verbose")
	quiet := viper.GetBool("quiet")
	util.SetVerbose(verbose)
	util.SetQuiet(quiet)

	dbPath := viper.GetString("database_path")
	util.InfoLog("Opening catalog: %s", dbPath)

	cat, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	if dir := viper.GetString("live_database_dir"); dir != "" {
		reg, err := plugin.Open(dir)
		if err != nil {
			util.WarnLog("plugin registry disabled: %v", err)
		} else {
			plugin.Global = reg
			defer reg.Close()
		}
	}

	ext := util.GetProjectExtension()
	scanner := pipeline.New(cat, ext)

	isTTY := util.IsTerminal(os.Stdout.Fd())
	var bar *progressbar.ProgressBar
	if isTTY && !quiet {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	reporter := progress.Func(func(u progress.Update) {
		if bar != nil {
			bar.Describe(fmt.Sprintf("%s: %s", u.Phase, u.Message))
			if u.Total > 0 {
				bar.ChangeMax(int(u.Total))
				bar.Set(int(u.Completed))
			}
			return
		}
		util.InfoLog("[%s] %s", u.Phase, u.Message)
	})

	util.InfoLog("=== Scanning %d root(s) ===", len(roots))
	start := time.Now()
	result, err := scanner.StartScan(ctx, roots, reporter)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	util.SuccessLog("Scan complete in %v", elapsed)
	util.InfoLog("  Files discovered: %d", result.FilesDiscovered)
	util.InfoLog("  Files parsed:     %d", result.FilesParsed)
	util.InfoLog("  Projects new:     %d", result.Stats.ProjectsInserted)
	util.InfoLog("  Plugins new:      %d", result.Stats.PluginsInserted)
	util.InfoLog("  Samples new:      %d", result.Stats.SamplesInserted)
	if result.FilesFailed > 0 {
		util.WarnLog("  Failures: %d", result.FilesFailed)
		for _, e := range result.Errors {
			util.WarnLog("    %v", e)
		}
	}

	return nil
}
