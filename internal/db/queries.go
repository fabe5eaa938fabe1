package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type Queries struct {
	db *sql.DB
}

func unixNow() int64 { return time.Now().Unix() }

func tFromUnix(u int64) time.Time {
	if u <= 0 {
		return time.Time{}
	}
	return time.Unix(u, 0)
}

/* ---------------- Documents ---------------- */

// GetDocument returns nil, nil when name has never been written.
func (q *Queries) GetDocument(ctx context.Context, name string) (*Document, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT name,body,revision,updated_at
		FROM documents WHERE name=?`, name)
	var d Document
	var body string
	var ua int64
	if err := row.Scan(&d.Name, &body, &d.Revision, &ua); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.Body = []byte(body)
	d.UpdatedAt = tFromUnix(ua)
	return &d, nil
}

// PutDocument replaces the body and appends it to the revision history,
// pruning history to the newest keep revisions when keep > 0. All of it is
// one transaction. It returns the new revision number.
func (q *Queries) PutDocument(ctx context.Context, name string, body []byte, keep int) (int64, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	now := unixNow()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents(name,body,revision,updated_at) VALUES(?,?,1,?)
		ON CONFLICT(name) DO UPDATE SET
			body=excluded.body,
			revision=documents.revision+1,
			updated_at=excluded.updated_at;`,
		name, string(body), now,
	); err != nil {
		return 0, err
	}

	var rev int64
	if err := tx.QueryRowContext(ctx, `SELECT revision FROM documents WHERE name=?;`, name).Scan(&rev); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO document_revisions(name,revision,body,created_at) VALUES(?,?,?,?);`,
		name, rev, string(body), now,
	); err != nil {
		return 0, err
	}
	if keep > 0 && rev > int64(keep) {
		if _, err := pruneRevisions(ctx, tx, name, keep); err != nil {
			return 0, fmt.Errorf("prune: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return rev, nil
}

// ListRevisions returns the newest revisions first.
func (q *Queries) ListRevisions(ctx context.Context, name string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := q.db.QueryContext(ctx, `
		SELECT revision,length(body),created_at
		FROM document_revisions
		WHERE name=?
		ORDER BY revision DESC
		LIMIT ?`, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Revision
	for rows.Next() {
		var r Revision
		var ca int64
		if err := rows.Scan(&r.Revision, &r.Size, &ca); err != nil {
			return nil, err
		}
		r.CreatedAt = tFromUnix(ca)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRevision returns nil, nil for an unknown revision.
func (q *Queries) GetRevision(ctx context.Context, name string, rev int64) ([]byte, error) {
	var body string
	err := q.db.QueryRowContext(ctx, `
		SELECT body FROM document_revisions WHERE name=? AND revision=?`, name, rev).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

// pruneRevisions keeps the newest keep revisions of name.
func pruneRevisions(ctx context.Context, tx *sql.Tx, name string, keep int) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		DELETE FROM document_revisions
		WHERE name=? AND revision <= (SELECT COALESCE(MAX(revision),0) FROM document_revisions WHERE name=?) - ?`,
		name, name, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
