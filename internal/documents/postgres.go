package documents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"go-stamppdf/internal/apperr"
)

// PostgresStore reads documents from a table with an attachments jsonb column:
//
//	create table documents (
//	    id          bigserial primary key,
//	    barcode     text unique not null,
//	    attachments jsonb not null default '[]'
//	);
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens and pings the database at databaseURL.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) GetDocumentByBarcode(ctx context.Context, barcode string) (*Document, error) {
	const query = `select id, barcode, attachments from documents where barcode = $1`

	var (
		doc Document
		raw []byte
	)
	err := s.db.QueryRowContext(ctx, query, barcode).Scan(&doc.ID, &doc.Barcode, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Errorf(apperr.KindNotFound, "documents.GetDocumentByBarcode", "no document with barcode %q", barcode)
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc.Attachments); err != nil {
			return nil, fmt.Errorf("unmarshal attachments: %w", err)
		}
	}
	return &doc, nil
}

func (s *PostgresStore) UpdateAttachments(ctx context.Context, id int64, attachments []Attachment) error {
	const query = `update documents set attachments = $2::jsonb where id = $1`

	if attachments == nil {
		attachments = []Attachment{}
	}
	raw, err := json.Marshal(attachments)
	if err != nil {
		return fmt.Errorf("marshal attachments: %w", err)
	}
	res, err := s.db.ExecContext(ctx, query, id, string(raw))
	if err != nil {
		return fmt.Errorf("update attachments: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Errorf(apperr.KindNotFound, "documents.UpdateAttachments", "no document with id %d", id)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
