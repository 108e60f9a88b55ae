package catalog

import "time"

// Project is one catalog row derived from a parsed DAW project file.
type Project struct {
	ID              string
	Path            string
	Name            string
	Hash            string
	CreatedAt       time.Time
	ModifiedAt      time.Time
	LastParsedAt    time.Time
	Tempo           float64
	TSNumerator     int
	TSDenominator   int
	KeyTonic        *int
	KeyScale        *int
	DurationSeconds *float64
	FurthestBar     *float64
	VersionMajor    int
	VersionMinor    int
	VersionPatch    int
	VersionBeta     bool
	IsActive        bool
	Notes           string
}

// Plugin is a canonical, deduplicated plugin row keyed by device identifier.
type Plugin struct {
	ID            string
	DevIdentifier string
	Name          string
	Format        int
	Vendor        *string
	Version       *string
	SDKVersion    *string
	Flags         *string
	Installed     bool
}

// Sample is a canonical, deduplicated sample row keyed by absolute path.
type Sample struct {
	ID        string
	Path      string
	Name      string
	IsPresent bool
}

// Tag is a free-form label attachable to projects.
type Tag struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Collection is an ordered, named list of projects.
type Collection struct {
	ID          int64
	Name        string
	Description string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Task is a per-project todo item.
type Task struct {
	ID          int64
	ProjectID   string
	Description string
	Completed   bool
	CreatedAt   time.Time
}

// IngestStats summarizes one batched ingest.
type IngestStats struct {
	ProjectsInserted int
	PluginsInserted  int
	SamplesInserted  int
}
