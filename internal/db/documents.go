package db

import (
	"context"
	"encoding/json"
	"fmt"

	"tapboard/internal/inventory"
)

// StateDocument is the name the inventory document is stored under.
const StateDocument = "state"

// DocumentStore adapts a sqlite Store to inventory.Store. Each Put appends a
// revision; older revisions beyond keep are pruned.
type DocumentStore struct {
	s    *Store
	name string
	keep int
}

func NewDocumentStore(s *Store, keep int) *DocumentStore {
	return &DocumentStore{s: s, name: StateDocument, keep: keep}
}

func (d *DocumentStore) Get(ctx context.Context) (*inventory.State, error) {
	doc, err := d.s.Q.GetDocument(ctx, d.name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.name, err)
	}
	if doc == nil {
		return nil, inventory.ErrNoDocument
	}
	var st inventory.State
	if err := json.Unmarshal(doc.Body, &st); err != nil {
		return nil, fmt.Errorf("decode %s revision %d: %w", d.name, doc.Revision, err)
	}
	return &st, nil
}

func (d *DocumentStore) Put(ctx context.Context, st *inventory.State) error {
	body, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if _, err := d.s.Q.PutDocument(ctx, d.name, body, d.keep); err != nil {
		return fmt.Errorf("store %s: %w", d.name, err)
	}
	return nil
}

// Revisions lists the stored history of the document, newest first.
func (d *DocumentStore) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	return d.s.Q.ListRevisions(ctx, d.name, limit)
}

// Revision returns the document as it was at rev.
func (d *DocumentStore) Revision(ctx context.Context, rev int64) (*inventory.State, error) {
	body, err := d.s.Q.GetRevision(ctx, d.name, rev)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("revision %d: %w", rev, inventory.ErrNotFound)
	}
	var st inventory.State
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("decode revision %d: %w", rev, err)
	}
	return &st, nil
}
