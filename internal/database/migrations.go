package database

// migrations is an ordered list of SQL migration groups. Each entry is a slice
// of SQL statements that are executed together in a single transaction. The
// version number is the 1-based index into this slice.
var migrations = [][]string{
	// Migration 1: entities, scoped attributes and relations
	{
		`CREATE TABLE entities (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX idx_entities_type_profile ON entities(entity_type, type)`,

		`CREATE TABLE attributes (
			entity_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			last_update_ts INTEGER NOT NULL,
			PRIMARY KEY (entity_id, scope, key),
			FOREIGN KEY (entity_id) REFERENCES entities(id) ON DELETE CASCADE
		)`,

		`CREATE TABLE relations (
			from_id TEXT NOT NULL,
			from_type TEXT NOT NULL,
			to_id TEXT NOT NULL,
			to_type TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			type_group TEXT NOT NULL DEFAULT 'COMMON',
			created_at TEXT NOT NULL,
			PRIMARY KEY (from_id, relation_type, to_id),
			FOREIGN KEY (from_id) REFERENCES entities(id) ON DELETE CASCADE,
			FOREIGN KEY (to_id) REFERENCES entities(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX idx_relations_to ON relations(to_id)`,
	},
}
