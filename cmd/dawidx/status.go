package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fauli/dawidx/internal/catalog"
	"github.com/fauli/dawidx/internal/parse"
	"github.com/fauli/dawidx/internal/util"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the catalog's active projects",
	Long: `Status lists every active project in the catalog with its tempo, key,
time signature and tags.

Use --tag to only show projects carrying a given tag, and --verbose to
also print each project's path and last-parsed time.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().String("tag", "", "only show projects carrying this tag")
	statusCmd.Flags().Bool("verbose", false, "show path and last-parsed time")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("database_path")
	tagFilter, _ := cmd.Flags().GetString("tag")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cat, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer cat.Close()

	projects, err := cat.GetActiveProjects()
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })

	util.InfoLog("=== Catalog Status ===")
	util.InfoLog("Database: %s", dbPath)
	util.InfoLog("Active projects: %d", len(projects))
	fmt.Println()

	shown := 0
	for _, p := range projects {
		tags, err := cat.GetProjectTags(p.ID)
		if err != nil {
			util.ErrorLog("failed to load tags for %s: %v", p.Name, err)
			continue
		}

		if tagFilter != "" && !containsTag(tags, tagFilter) {
			continue
		}
		shown++

		fmt.Printf("  %s\n", p.Name)
		fmt.Printf("     Tempo: %.1f   Time: %d/%d\n", p.Tempo, p.TSNumerator, p.TSDenominator)
		if p.KeyTonic != nil && p.KeyScale != nil {
			fmt.Printf("     Key:   %s %s\n", parse.Tonic(*p.KeyTonic), parse.Scale(*p.KeyScale))
		}
		if len(tags) > 0 {
			fmt.Printf("     Tags:  %v\n", tags)
		}
		if verbose {
			fmt.Printf("     Path:        %s\n", p.Path)
			fmt.Printf("     Last parsed: %s\n", p.LastParsedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}

	if tagFilter != "" {
		util.InfoLog("Shown (tag=%s): %d of %d", tagFilter, shown, len(projects))
	}

	return nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
