package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dgallion1/prose/internal/doctree"
)

// PostgresStore reads and writes workspaces in PostgreSQL.
type PostgresStore struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS workspaces (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  name VARCHAR(255) NOT NULL UNIQUE,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS folders (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  name VARCHAR(255) NOT NULL,
  workspace_id UUID NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
  parent_id UUID REFERENCES folders(id) ON DELETE CASCADE,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_folders_workspace_parent ON folders (workspace_id, parent_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_workspace_parent_name ON folders (workspace_id, parent_id, name);
-- NULL parents are distinct in the index above.
CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_workspace_root_name ON folders (workspace_id, name) WHERE parent_id IS NULL;

CREATE TABLE IF NOT EXISTS documents (
  id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
  title VARCHAR(255) NOT NULL DEFAULT 'Untitled',
  content TEXT NOT NULL DEFAULT '',
  workspace_id UUID NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
  folder_id UUID REFERENCES folders(id) ON DELETE CASCADE,
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_workspace_updated_at ON documents (workspace_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_workspace_folder_id ON documents (workspace_id, folder_id);
`)
	})
	return s.schemaErr
}

// FetchTree loads every folder and document of the workspace.
func (s *PostgresStore) FetchTree(ctx context.Context, workspaceID string) ([]*doctree.FolderTreeNode, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	folderRows, err := s.db.QueryContext(ctx, `
SELECT id::text, name, parent_id::text
FROM folders WHERE workspace_id = $1
ORDER BY name, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query folders: %w", err)
	}
	defer folderRows.Close()

	var folders []doctree.FolderRow
	for folderRows.Next() {
		var f doctree.FolderRow
		var parent sql.NullString
		if err := folderRows.Scan(&f.ID, &f.Name, &parent); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.ParentID = nullable(parent)
		folders = append(folders, f)
	}
	if err := folderRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	docRows, err := s.db.QueryContext(ctx, `
SELECT id::text, title, content, folder_id::text
FROM documents WHERE workspace_id = $1
ORDER BY title, id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer docRows.Close()

	var docs []doctree.DocumentRow
	for docRows.Next() {
		var d doctree.DocumentRow
		var folder sql.NullString
		if err := docRows.Scan(&d.ID, &d.Title, &d.Content, &folder); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.FolderID = nullable(folder)
		docs = append(docs, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return doctree.BuildTree(folders, docs), nil
}

func (s *PostgresStore) ensureWorkspace(ctx context.Context, workspaceID string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO workspaces (id, name) VALUES ($1, $2)
ON CONFLICT DO NOTHING`, workspaceID, workspaceID)
	if err != nil {
		return fmt.Errorf("ensure workspace: %w", err)
	}
	return nil
}

func (s *PostgresStore) EnsureFolder(ctx context.Context, workspaceID string, parentID *string, name string) (string, bool, error) {
	if err := validateName(name); err != nil {
		return "", false, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return "", false, err
	}
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return "", false, err
	}

	const lookup = `
SELECT id::text FROM folders
WHERE workspace_id = $1 AND parent_id IS NOT DISTINCT FROM $2 AND name = $3`
	var id string
	err := s.db.QueryRowContext(ctx, lookup, workspaceID, parentID, name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("lookup folder %q: %w", name, err)
	}

	err = s.db.QueryRowContext(ctx, `
INSERT INTO folders (workspace_id, parent_id, name) VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING
RETURNING id::text`, workspaceID, parentID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost a race with a concurrent insert.
		if err := s.db.QueryRowContext(ctx, lookup, workspaceID, parentID, name).Scan(&id); err != nil {
			return "", false, fmt.Errorf("lookup folder %q: %w", name, err)
		}
		return id, false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, true, nil
}

func (s *PostgresStore) PutDocument(ctx context.Context, workspaceID string, folderID *string, title, content string) (bool, error) {
	if err := validateName(title); err != nil {
		return false, err
	}
	if err := s.ensureSchema(ctx); err != nil {
		return false, err
	}
	if err := s.ensureWorkspace(ctx, workspaceID); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
UPDATE documents SET content = $4, updated_at = NOW()
WHERE workspace_id = $1 AND folder_id IS NOT DISTINCT FROM $2 AND title = $3`,
		workspaceID, folderID, title, content)
	if err != nil {
		return false, fmt.Errorf("update document %q: %w", title, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update document %q: %w", title, err)
	}
	created := n == 0
	if created {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO documents (workspace_id, folder_id, title, content) VALUES ($1, $2, $3, $4)`,
			workspaceID, folderID, title, content); err != nil {
			return false, fmt.Errorf("insert document %q: %w", title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
