package db

import (
	"context"
	"database/sql"
)

type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const getDocument = `
SELECT body FROM documents WHERE name = ?
`

func (q *Queries) GetDocument(ctx context.Context, name string) (string, error) {
	row := q.db.QueryRowContext(ctx, getDocument, name)
	var body string
	err := row.Scan(&body)
	return body, err
}

const putDocument = `
INSERT INTO documents (name, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
`

func (q *Queries) PutDocument(ctx context.Context, name, body string, updatedAt int64) error {
	_, err := q.db.ExecContext(ctx, putDocument, name, body, updatedAt)
	return err
}

const deleteDocument = `
DELETE FROM documents WHERE name = ?
`

func (q *Queries) DeleteDocument(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, name)
	return err
}
