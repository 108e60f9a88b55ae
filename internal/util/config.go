package util

import "github.com/spf13/viper"

// GetProjectExtension returns the configured file extension marking a
// project, defaulting to ".als" (the DAW's native extension).
func GetProjectExtension() string {
	ext := viper.GetString("project_extension")
	if ext == "" {
		return ".als"
	}
	return ext
}

// GetLiveDatabaseDir returns the directory containing the external plugin
// database used for enrichment. Empty disables enrichment.
func GetLiveDatabaseDir() string {
	return viper.GetString("live_database_dir")
}

// GetPaths returns the configured root directories to index.
func GetPaths() []string {
	return viper.GetStringSlice("paths")
}

// GetDatabasePath returns the path to the catalog file.
func GetDatabasePath() string {
	path := viper.GetString("database_path")
	if path == "" {
		return "dawidx.db"
	}
	return path
}
