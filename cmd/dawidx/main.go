package main

import (
	"fmt"
	"os"

	"github.com/fauli/dawidx/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "dawidx",
		Short: "Index and watch a tree of DAW project files",
		Long: `dawidx indexes a tree of Ableton Live project files into a local catalog:
tempo, key, time signature, plugins, samples and estimated duration, kept
current either by periodic re-scans or by watching the filesystem live.`,
		Version: Version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches $HOME/.dawidx, ., /etc/dawidx)")
	rootCmd.PersistentFlags().String("database_path", "dawidx.db", "catalog database file")
	rootCmd.PersistentFlags().StringSlice("paths", nil, "root directories to index")
	rootCmd.PersistentFlags().String("project_extension", ".als", "file extension marking a project")
	rootCmd.PersistentFlags().String("live_database_dir", "", "directory containing the DAW's own plugin database (enables plugin metadata enrichment)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	viper.BindPFlag("database_path", rootCmd.PersistentFlags().Lookup("database_path"))
	viper.BindPFlag("paths", rootCmd.PersistentFlags().Lookup("paths"))
	viper.BindPFlag("project_extension", rootCmd.PersistentFlags().Lookup("project_extension"))
	viper.BindPFlag("live_database_dir", rootCmd.PersistentFlags().Lookup("live_database_dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home + "/.dawidx")
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/dawidx")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("DAWIDX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !viper.GetBool("quiet") {
		util.InfoLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
