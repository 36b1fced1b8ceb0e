package repository

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// column types that differ between the two supported dialects
type typeSet struct {
	uuid, ts, date, float, serial string
}

var dialectTypes = map[string]typeSet{
	dialect.Postgres: {uuid: "UUID", ts: "TIMESTAMPTZ", date: "DATE", float: "DOUBLE PRECISION", serial: "BIGSERIAL PRIMARY KEY"},
	dialect.SQLite:   {uuid: "TEXT", ts: "DATETIME", date: "DATE", float: "REAL", serial: "INTEGER PRIMARY KEY AUTOINCREMENT"},
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS tenders (
	id {uuid} PRIMARY KEY,
	tender_no TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	province TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	procurement_method TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	source_site TEXT NOT NULL DEFAULT '',
	tender_url TEXT NOT NULL DEFAULT '',
	publish_date {date},
	closing_date {date},
	opening_date {date},
	road_length_km {float},
	road_width_m {float},
	cost_pkr {float},
	year INTEGER NOT NULL DEFAULT 0,
	source_path TEXT NOT NULL,
	source_hash TEXT NOT NULL UNIQUE,
	document_id {uuid},
	created_at {ts} NOT NULL
);
CREATE TABLE IF NOT EXISTS extracted_documents (
	id {uuid} PRIMARY KEY,
	tender_id {uuid} NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	source_path TEXT NOT NULL,
	text TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL DEFAULT '',
	pages INTEGER NOT NULL DEFAULT 0,
	scanned BOOLEAN NOT NULL DEFAULT FALSE,
	confidence {float} NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	created_at {ts} NOT NULL,
	updated_at {ts} NOT NULL
);
CREATE INDEX IF NOT EXISTS extracted_documents_status_idx ON extracted_documents (status);
CREATE TABLE IF NOT EXISTS boq_line_items (
	tender_id {uuid} NOT NULL REFERENCES tenders(id) ON DELETE CASCADE,
	sequence INTEGER NOT NULL,
	document_id {uuid} NOT NULL REFERENCES extracted_documents(id) ON DELETE CASCADE,
	item_code TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	quantity {float} NOT NULL,
	unit_price {float},
	total_price {float},
	source_line TEXT NOT NULL DEFAULT '',
	stage TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (tender_id, sequence)
);
CREATE TABLE IF NOT EXISTS canonical_materials (
	id {uuid} PRIMARY KEY,
	name TEXT NOT NULL,
	name_key TEXT NOT NULL UNIQUE,
	unit TEXT NOT NULL DEFAULT '',
	created_at {ts} NOT NULL
);
CREATE TABLE IF NOT EXISTS raw_price_observations (
	id {serial},
	material_id {uuid} NOT NULL REFERENCES canonical_materials(id),
	tender_id {uuid} REFERENCES tenders(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	price {float} NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	source TEXT NOT NULL DEFAULT '',
	line_sequence INTEGER NOT NULL DEFAULT 0,
	created_at {ts} NOT NULL
);
CREATE INDEX IF NOT EXISTS raw_price_observations_year_idx ON raw_price_observations (year, material_id);
CREATE TABLE IF NOT EXISTS yearly_prices (
	id {uuid} PRIMARY KEY,
	material_id {uuid} NOT NULL REFERENCES canonical_materials(id),
	year INTEGER NOT NULL,
	price {float} NOT NULL,
	unit TEXT NOT NULL DEFAULT '',
	effective_date {date} NOT NULL,
	observations INTEGER NOT NULL DEFAULT 0,
	updated_at {ts} NOT NULL,
	UNIQUE (material_id, year)
);
CREATE TABLE IF NOT EXISTS inflation_indices (
	material_id {uuid} NOT NULL REFERENCES canonical_materials(id),
	year INTEGER NOT NULL,
	rate {float} NOT NULL,
	updated_at {ts} NOT NULL,
	PRIMARY KEY (material_id, year)
);
`

// Migrate creates the schema if it does not exist. It is safe to run on
// every start.
func Migrate(ctx context.Context, conn Conn) error {
	types, ok := dialectTypes[conn.Dialect()]
	if !ok {
		return fmt.Errorf("migrate: unsupported dialect %q", conn.Dialect())
	}
	ddl := strings.NewReplacer(
		"{uuid}", types.uuid,
		"{ts}", types.ts,
		"{date}", types.date,
		"{float}", types.float,
		"{serial}", types.serial,
	).Replace(schemaDDL)

	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if err := conn.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, stmt)
		}
	}
	return nil
}
