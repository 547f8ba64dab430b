// Copyright (c) 2026 PSU Triup. All rights reserved.
// Author: Triup Portal Team

package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/psu-triup/portal/internal/access"
	"github.com/psu-triup/portal/internal/platform/database/schema"
	"github.com/psu-triup/portal/internal/platform/dberr"
)

// PostgresStore implements [Store] on the portal.access_audit table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed [Store].
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes the entries in a single batch.
func (store *PostgresStore) Insert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (%s) DO NOTHING
	`,
		schema.PortalAccessAudit.Table,
		schema.PortalAccessAudit.ID, schema.PortalAccessAudit.Area, schema.PortalAccessAudit.Path,
		schema.PortalAccessAudit.Outcome, schema.PortalAccessAudit.Location, schema.PortalAccessAudit.Username,
		schema.PortalAccessAudit.RoleID, schema.PortalAccessAudit.RequestID, schema.PortalAccessAudit.IPAddress,
		schema.PortalAccessAudit.CreatedAt,
		schema.PortalAccessAudit.ID,
	)

	batch := &pgx.Batch{}
	for _, entry := range entries {
		batch.Queue(query,
			entry.ID, entry.Area, entry.Path, entry.Outcome, entry.Location,
			entry.Username, int(entry.RoleID), entry.RequestID, entry.IPAddress, entry.CreatedAt,
		)
	}

	results := store.db.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return dberr.Wrap(err, "insert_access_audit")
		}
	}

	return nil
}

// List returns a page of entries, newest first, and the total count.
func (store *PostgresStore) List(ctx context.Context, limit, offset int) ([]Entry, int, error) {
	countQuery := fmt.Sprintf(`SELECT count(*) FROM %s`, schema.PortalAccessAudit.Table)

	var total int
	if err := store.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_access_audit")
	}

	query := fmt.Sprintf(`
		SELECT %s::text, %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		ORDER BY %s DESC, %s DESC
		LIMIT $1 OFFSET $2
	`,
		schema.PortalAccessAudit.ID, schema.PortalAccessAudit.Area, schema.PortalAccessAudit.Path,
		schema.PortalAccessAudit.Outcome, schema.PortalAccessAudit.Location, schema.PortalAccessAudit.Username,
		schema.PortalAccessAudit.RoleID, schema.PortalAccessAudit.RequestID, schema.PortalAccessAudit.IPAddress,
		schema.PortalAccessAudit.CreatedAt,
		schema.PortalAccessAudit.Table,
		schema.PortalAccessAudit.CreatedAt, schema.PortalAccessAudit.ID,
	)

	rows, err := store.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_access_audit")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			entry  Entry
			roleID int
		)
		if err := rows.Scan(
			&entry.ID, &entry.Area, &entry.Path, &entry.Outcome, &entry.Location,
			&entry.Username, &roleID, &entry.RequestID, &entry.IPAddress, &entry.CreatedAt,
		); err != nil {
			return nil, 0, dberr.Wrap(err, "scan_access_audit")
		}
		entry.RoleID = access.RoleID(roleID)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, dberr.Wrap(err, "iterate_access_audit")
	}

	return entries, total, nil
}
