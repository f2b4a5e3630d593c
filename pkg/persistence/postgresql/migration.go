package postgresql

// migrations returns the ordered schema migrations for the flow store. Nodes,
// edges and the viewport travel as JSONB inside the flow row: the builder
// always loads and saves whole canvas documents.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS flows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				version INTEGER NOT NULL DEFAULT 1,
				status TEXT NOT NULL DEFAULT 'draft',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				viewport JSONB NOT NULL DEFAULT '{}',
				notes TEXT NOT NULL DEFAULT '',
				owner TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				published_at TIMESTAMP WITH TIME ZONE,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_flows_owner ON flows(owner) WHERE deleted_at IS NULL;
			CREATE INDEX IF NOT EXISTS idx_flows_status ON flows(status) WHERE deleted_at IS NULL;
		`,
		2: `
			CREATE TABLE IF NOT EXISTS credentials (
				id TEXT PRIMARY KEY,
				provider TEXT NOT NULL,
				name TEXT NOT NULL,
				owner TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_credentials_provider ON credentials(provider);
		`,
	}
}
