package catalog

// schemaV1 is the initial catalog schema: projects, plugins, samples, tags,
// collections, tasks, their junction tables, and a project_search FTS5
// virtual table kept in sync by the batched ingest protocol.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  path TEXT UNIQUE,
  name TEXT NOT NULL,
  hash TEXT NOT NULL,
  created_at DATETIME NOT NULL,
  modified_at DATETIME NOT NULL,
  last_parsed_at DATETIME NOT NULL,
  tempo REAL NOT NULL,
  ts_numerator INTEGER NOT NULL,
  ts_denominator INTEGER NOT NULL,
  key_tonic INTEGER,
  key_scale INTEGER,
  duration_seconds REAL,
  furthest_bar REAL,
  version_major INTEGER NOT NULL,
  version_minor INTEGER NOT NULL,
  version_patch INTEGER NOT NULL,
  version_beta INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_projects_is_active ON projects(is_active);
CREATE INDEX IF NOT EXISTS idx_projects_hash ON projects(hash);

CREATE TABLE IF NOT EXISTS plugins (
  id TEXT PRIMARY KEY,
  dev_identifier TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  format INTEGER NOT NULL,
  vendor TEXT,
  version TEXT,
  sdk_version TEXT,
  flags TEXT,
  installed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS samples (
  id TEXT PRIMARY KEY,
  path TEXT UNIQUE NOT NULL,
  name TEXT NOT NULL,
  is_present INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS collections (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT UNIQUE NOT NULL,
  description TEXT,
  notes TEXT,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS project_plugins (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  plugin_id TEXT NOT NULL REFERENCES plugins(id) ON DELETE CASCADE,
  PRIMARY KEY (project_id, plugin_id)
);

CREATE TABLE IF NOT EXISTS project_samples (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  sample_id TEXT NOT NULL REFERENCES samples(id) ON DELETE CASCADE,
  PRIMARY KEY (project_id, sample_id)
);

CREATE TABLE IF NOT EXISTS project_tags (
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  tag_id INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (project_id, tag_id)
);

CREATE TABLE IF NOT EXISTS collection_projects (
  collection_id INTEGER NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY (collection_id, project_id)
);

CREATE INDEX IF NOT EXISTS idx_collection_projects_position ON collection_projects(collection_id, position);

CREATE TABLE IF NOT EXISTS project_tasks (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  completed INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE VIRTUAL TABLE IF NOT EXISTS project_search USING fts5(
  project_id UNINDEXED,
  name,
  path,
  plugins,
  samples,
  tags,
  notes,
  timestamps,
  tempo_text
);
`
