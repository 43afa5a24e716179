package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/storage/migrations"
	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

// SQLiteStore persists novels in SQLite. Scenes live in their own table, one
// row per position; choices and sprites are JSON columns.
type SQLiteStore struct {
	db *sql.DB
}

var _ NovelStore = (*SQLiteStore)(nil)

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// OpenSQLite opens the database at path and applies embedded migrations.
// ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// each connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyMigrations(db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := db.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		up := string(content)
		if i := strings.Index(up, "-- +migrate Up"); i >= 0 {
			up = up[i+len("-- +migrate Up"):]
		}
		if i := strings.Index(up, "-- +migrate Down"); i >= 0 {
			up = up[:i]
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec("INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)", file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// Create inserts novel with its scenes.
func (s *SQLiteStore) Create(ctx context.Context, novel *models.Novel) (*models.Novel, error) {
	if novel == nil {
		return nil, apperrors.NewValidationError("novel is required", nil)
	}
	out := *novel
	out.Scenes = models.CloneScenes(novel.Scenes)
	models.Normalize(out.Scenes)
	out.CreatedAt = now()
	out.UpdatedAt = out.CreatedAt

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO novels (author_id, title, description, cover_image, is_published, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			out.AuthorID, out.Title, out.Description, out.CoverImage, out.IsPublished,
			toMillis(out.CreatedAt), toMillis(out.UpdatedAt),
		)
		if err != nil {
			return err
		}
		if out.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertScenes(ctx, tx, out.ID, out.Scenes)
	})
	if err != nil {
		return nil, apperrors.NewUnavailableError("create novel", err)
	}
	return &out, nil
}

// Get loads novel id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*models.Novel, error) {
	var (
		n                models.Novel
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, author_id, title, description, cover_image, is_published, created_at, updated_at
		 FROM novels WHERE id = ?`, id,
	).Scan(&n.ID, &n.AuthorID, &n.Title, &n.Description, &n.CoverImage, &n.IsPublished, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, apperrors.NewUnavailableError("load novel", err)
	}
	n.CreatedAt = fromMillis(created)
	n.UpdatedAt = fromMillis(updated)

	scenes, err := s.loadScenes(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Scenes = scenes
	return &n, nil
}

func (s *SQLiteStore) loadScenes(ctx context.Context, novelID int64) ([]models.Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, scene_id, name, text, background, choices, sprites
		 FROM scenes WHERE novel_id = ? ORDER BY position`, novelID)
	if err != nil {
		return nil, apperrors.NewUnavailableError("load scenes", err)
	}
	defer rows.Close()

	scenes := []models.Scene{}
	for rows.Next() {
		var (
			scene            models.Scene
			choices, sprites string
		)
		if err := rows.Scan(&scene.Order, &scene.ID, &scene.Name, &scene.Text, &scene.Background, &choices, &sprites); err != nil {
			return nil, apperrors.NewUnavailableError("scan scene", err)
		}
		if err := json.Unmarshal([]byte(choices), &scene.Choices); err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("scene %s has malformed choices", scene.ID), err)
		}
		if err := json.Unmarshal([]byte(sprites), &scene.Sprites); err != nil {
			return nil, apperrors.NewProcessingError(fmt.Sprintf("scene %s has malformed sprites", scene.ID), err)
		}
		scenes = append(scenes, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("iterate scenes", err)
	}
	models.Normalize(scenes)
	return scenes, nil
}

// Save replaces the novel's metadata and scenes in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, novel *models.Novel) error {
	if novel == nil {
		return apperrors.NewValidationError("novel is required", nil)
	}
	scenes := models.CloneScenes(novel.Scenes)
	models.Normalize(scenes)
	updated := now()

	var missing bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE novels SET title = ?, description = ?, cover_image = ?, is_published = ?, updated_at = ?
			 WHERE id = ?`,
			novel.Title, novel.Description, novel.CoverImage, novel.IsPublished, toMillis(updated), novel.ID,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			missing = true
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE novel_id = ?`, novel.ID); err != nil {
			return err
		}
		return insertScenes(ctx, tx, novel.ID, scenes)
	})
	if err != nil {
		return apperrors.NewUnavailableError("save novel", err)
	}
	if missing {
		return notFound(novel.ID)
	}
	novel.UpdatedAt = updated
	return nil
}

func insertScenes(ctx context.Context, tx *sql.Tx, novelID int64, scenes []models.Scene) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO scenes (novel_id, position, scene_id, name, text, background, choices, sprites)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, scene := range scenes {
		choices, err := json.Marshal(scene.Choices)
		if err != nil {
			return err
		}
		sprites, err := json.Marshal(scene.Sprites)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, novelID, i, scene.ID, scene.Name, scene.Text, scene.Background,
			string(choices), string(sprites)); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes novel id.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	var affected int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE novel_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM novels WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return apperrors.NewUnavailableError("delete novel", err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

// List returns matching summaries.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]models.NovelSummary, error) {
	query := `SELECT n.id, n.author_id, n.title, n.description, n.cover_image, n.is_published,
	                 n.created_at, n.updated_at,
	                 (SELECT COUNT(*) FROM scenes s WHERE s.novel_id = n.id)
	          FROM novels n`
	var (
		where []string
		args  []any
	)
	if filter.AuthorID != "" {
		where = append(where, "n.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.PublishedOnly {
		where = append(where, "n.is_published = 1")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY n.updated_at DESC, n.id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewUnavailableError("list novels", err)
	}
	defer rows.Close()

	out := []models.NovelSummary{}
	for rows.Next() {
		var (
			sum              models.NovelSummary
			created, updated int64
		)
		if err := rows.Scan(&sum.ID, &sum.AuthorID, &sum.Title, &sum.Description, &sum.CoverImage,
			&sum.IsPublished, &created, &updated, &sum.SceneCount); err != nil {
			return nil, apperrors.NewUnavailableError("scan novel", err)
		}
		sum.CreatedAt = fromMillis(created)
		sum.UpdatedAt = fromMillis(updated)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUnavailableError("iterate novels", err)
	}
	return out, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
