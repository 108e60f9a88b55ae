package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fauli/dawidx/internal/catalog"
	"github.com/fauli/dawidx/internal/util"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure dawidx can operate correctly.

This command checks:
- Catalog database accessibility and integrity
- Configured root directories are readable
- The optional plugin registry directory, if configured
- Disk space at the catalog's location

Use this command to troubleshoot issues before running a scan.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== dawidx Doctor ===")
	util.InfoLog("")

	var results []checkResult

	dbPath := viper.GetString("database_path")
	results = append(results, checkDatabase(dbPath))

	for _, root := range viper.GetStringSlice("paths") {
		results = append(results, checkRootDirectory(root))
	}

	if dir := viper.GetString("live_database_dir"); dir != "" {
		results = append(results, checkLiveDatabaseDir(dir))
	}

	results = append(results, checkDiskSpace(dbPath))

	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Resolve them before scanning.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings.")
	} else {
		util.SuccessLog("All checks passed.")
	}

	return nil
}

func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{name: "Catalog", warning: true, message: "no database_path configured"}
	}

	info, err := os.Stat(dbPath)
	if err != nil && !os.IsNotExist(err) {
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("cannot access %s: %v", dbPath, err)}
	}

	cat, err := catalog.Open(dbPath)
	if err != nil {
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("cannot open %s: %v", dbPath, err)}
	}
	defer cat.Close()

	if err := cat.CheckIntegrity(); err != nil {
		return checkResult{name: "Catalog", error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	projects, _ := cat.GetActiveProjects()
	size := "created empty by this check"
	if info != nil {
		size = humanize.Bytes(uint64(info.Size()))
	}

	return checkResult{name: "Catalog", message: fmt.Sprintf("%s (%s, %d active projects)", dbPath, size, len(projects))}
}

func checkRootDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		return checkResult{name: fmt.Sprintf("Root %s", path), error: true, message: err.Error()}
	}
	if !info.IsDir() {
		return checkResult{name: fmt.Sprintf("Root %s", path), error: true, message: "not a directory"}
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{name: fmt.Sprintf("Root %s", path), error: true, message: fmt.Sprintf("cannot read: %v", err)}
	}
	return checkResult{name: fmt.Sprintf("Root %s", path), message: fmt.Sprintf("%d entries", len(entries))}
}

func checkLiveDatabaseDir(dir string) checkResult {
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{name: "Plugin registry dir", warning: true, message: err.Error()}
	}
	if !info.IsDir() {
		return checkResult{name: "Plugin registry dir", warning: true, message: "not a directory"}
	}
	return checkResult{name: "Plugin registry dir", message: dir}
}

func checkDiskSpace(dbPath string) checkResult {
	dir := "."
	if dbPath != "" {
		dir = filepath.Dir(dbPath)
	}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(dir, &stat); err != nil {
		return checkResult{name: "Disk space", warning: true, message: fmt.Sprintf("cannot determine: %v", err)}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	totalBytes := stat.Blocks * uint64(stat.Bsize)
	usedBytes := totalBytes - (stat.Bfree * uint64(stat.Bsize))
	usedPercent := float64(usedBytes) / float64(totalBytes) * 100

	warning := usedPercent > 90
	msg := humanize.Bytes(availBytes) + " available"
	if warning {
		msg += " (>90% used)"
	}

	return checkResult{name: "Disk space", warning: warning, message: msg}
}
