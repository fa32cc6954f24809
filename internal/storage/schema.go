package storage

const schema = `
-- Interner: both directions of the (namespace,title) <-> page_id mapping.
-- The primary key serves the reverse lookup, the unique index the forward
-- lookup. Titles are raw dump bytes (underscore form, not always UTF-8).
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY,
    ns INTEGER NOT NULL,
    title BLOB NOT NULL,
    is_redirect INTEGER NOT NULL DEFAULT 0,
    UNIQUE (ns, title)
);

-- Materialized redirect map. Targets are always terminal pages; chains are
-- collapsed before anything is written here.
CREATE TABLE IF NOT EXISTS redirects (
    id INTEGER PRIMARY KEY,
    target INTEGER NOT NULL
);

-- Index metadata: build state and ingest counters.
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// metaComplete is written as the very last step of a build; its absence
// marks the index as unusable for queries.
const metaComplete = "build_complete"
