package index

// Schema is applied on every Open. Text columns that may be absent from
// an archive are nullable: NULL means absent, an empty string means present but empty.
const Schema = `
CREATE TABLE IF NOT EXISTS addons (
    id              TEXT PRIMARY KEY,
    path            TEXT NOT NULL UNIQUE,
    size            INTEGER NOT NULL,
    mod_time        INTEGER NOT NULL,
    name            TEXT,
    author          TEXT,
    description     TEXT,
    category        TEXT,
    tags_json       TEXT NOT NULL DEFAULT '[]',
    variant         TEXT NOT NULL,
    search_contents TEXT NOT NULL DEFAULT '',
    indexed_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_addons_category ON addons(category);
CREATE INDEX IF NOT EXISTS idx_addons_indexed ON addons(indexed_at DESC);

-- FTS5 over the composed search blob
CREATE VIRTUAL TABLE IF NOT EXISTS addons_fts USING fts5(
    search_contents, content='addons', content_rowid='rowid',
    tokenize='unicode61 remove_diacritics 2'
);

CREATE TRIGGER IF NOT EXISTS addons_ai AFTER INSERT ON addons BEGIN
    INSERT INTO addons_fts(rowid, search_contents) VALUES (new.rowid, new.search_contents);
END;
CREATE TRIGGER IF NOT EXISTS addons_ad AFTER DELETE ON addons BEGIN
    INSERT INTO addons_fts(addons_fts, rowid, search_contents) VALUES('delete', old.rowid, old.search_contents);
END;
CREATE TRIGGER IF NOT EXISTS addons_au AFTER UPDATE ON addons BEGIN
    INSERT INTO addons_fts(addons_fts, rowid, search_contents) VALUES('delete', old.rowid, old.search_contents);
    INSERT INTO addons_fts(rowid, search_contents) VALUES (new.rowid, new.search_contents);
END;

-- Published metadata slots, one row per (file, key)
CREATE TABLE IF NOT EXISTS properties (
    path       TEXT NOT NULL REFERENCES addons(path) ON DELETE CASCADE,
    key        TEXT NOT NULL,
    texts_json TEXT NOT NULL,
    multi      INTEGER NOT NULL,
    state      INTEGER NOT NULL,
    seq        INTEGER NOT NULL,
    PRIMARY KEY (path, key)
);

-- Decode failures other than "not an archive"
CREATE TABLE IF NOT EXISTS decode_log (
    id            TEXT PRIMARY KEY,
    path          TEXT NOT NULL,
    kind          TEXT NOT NULL,
    error_message TEXT NOT NULL,
    logged_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_decode_log_path ON decode_log(path, logged_at DESC);
`
