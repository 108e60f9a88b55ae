package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fauli/dawidx/internal/catalog"
	"github.com/fauli/dawidx/internal/coordinate"
	"github.com/fauli/dawidx/internal/plugin"
	"github.com/fauli/dawidx/internal/util"
	dawwatch "github.com/fauli/dawidx/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch configured roots and keep the catalog current live",
	Long: `Watch runs an offline reconciliation pass against the configured roots,
then keeps watching the filesystem: creates and modifications are parsed and
ingested as they happen, renames update the existing project row's path, and
deletions mark the project archived rather than removing its row.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	roots := viper.GetStringSlice("paths")
	if len(roots) == 0 {
		return util.ErrInvalidConfig
	}

	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	ext := util.GetProjectExtension()
	dbPath := viper.GetString("database_path")

	cat, err := catalog.Open(dbPath)
	if err != nil {
		return err
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

	util.InfoLog("Reconciling %d root(s) against the catalog", len(roots))
	if err := reconcile(cat, roots, ext); err != nil {
		return err
	}

	w, err := dawwatch.New(ext)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, root := range roots {
		if err := w.AddRoot(root); err != nil {
			return err
		}
	}

	go w.Run()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.InfoLog("Watching for changes. Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			util.InfoLog("Shutting down")
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleEvent(cat, ev)
		}
	}
}

func reconcile(cat *catalog.Catalog, roots []string, ext string) error {
	active, err := cat.GetActiveProjects()
	if err != nil {
		return err
	}

	activeByPath := make([]dawwatch.ActiveProject, 0, len(active))
	known := make(map[string]bool, len(active))
	for _, p := range active {
		activeByPath = append(activeByPath, dawwatch.ActiveProject{Path: p.Path, LastParsedAt: p.LastParsedAt})
		known[p.Path] = true
	}

	events := dawwatch.ReconcileOffline(roots, ext, activeByPath, known)
	for _, ev := range events {
		handleEvent(cat, ev)
	}
	return nil
}

func handleEvent(cat *catalog.Catalog, ev dawwatch.Event) {
	switch ev.Kind {
	case dawwatch.Created, dawwatch.Modified:
		ingestOne(cat, ev.To)
	case dawwatch.Deleted:
		archiveOne(cat, ev.To)
	case dawwatch.Renamed:
		renameOne(cat, ev.From, ev.To)
	}
}

func ingestOne(cat *catalog.Catalog, path string) {
	results := coordinate.Run([]string{path})
	if len(results) == 0 {
		return
	}
	r := results[0]
	if r.Err != nil {
		util.WarnLog("parse failed for %s: %v", path, r.Err)
		return
	}

	input := catalog.ProjectInput{
		Path:       r.Path,
		Hash:       r.Info.Hash,
		CreatedAt:  r.Info.CreatedAt,
		ModifiedAt: r.Info.ModifiedAt,
		Result:     r.Result,
	}
	if _, err := cat.Ingest([]catalog.ProjectInput{input}); err != nil {
		util.WarnLog("ingest failed for %s: %v", path, err)
		return
	}
	util.InfoLog("ingested %s", path)
}

func archiveOne(cat *catalog.Catalog, path string) {
	p, err := cat.GetProjectByPath(path)
	if err != nil {
		util.WarnLog("lookup failed for %s: %v", path, err)
		return
	}
	if p == nil {
		return
	}
	if err := cat.MarkArchived(p.ID, true); err != nil {
		util.WarnLog("archive failed for %s: %v", path, err)
		return
	}
	util.InfoLog("archived %s", path)
}

func renameOne(cat *catalog.Catalog, from, to string) {
	p, err := cat.GetProjectByPath(from)
	if err != nil {
		util.WarnLog("lookup failed for %s: %v", from, err)
		return
	}
	if p == nil {
		// The source wasn't a known active project; treat the destination
		// as a fresh file instead.
		ingestOne(cat, to)
		return
	}
	if err := cat.UpdateProjectPath(p.ID, to); err != nil {
		util.WarnLog("rename failed for %s -> %s: %v", from, to, err)
		return
	}
	util.InfoLog("renamed %s -> %s", from, to)
}
