// Package storage persists novels. Two backends implement NovelStore: SQLite
// (the default) and a directory of JSON files.
package storage

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
)

// ListFilter narrows List results. Zero values mean no restriction.
type ListFilter struct {
	AuthorID      string
	PublishedOnly bool
	Limit         int
}

func (f ListFilter) match(n *models.Novel) bool {
	if f.AuthorID != "" && n.AuthorID != f.AuthorID {
		return false
	}
	if f.PublishedOnly && !n.IsPublished {
		return false
	}
	return true
}

// NovelStore is the persistence contract used by the novel service.
type NovelStore interface {
	// Create inserts a novel and assigns its id and timestamps.
	Create(ctx context.Context, novel *models.Novel) (*models.Novel, error)
	// Get returns a novel with scenes in canonical order.
	Get(ctx context.Context, id int64) (*models.Novel, error)
	// Save replaces the metadata and every scene of an existing novel.
	Save(ctx context.Context, novel *models.Novel) error
	// Delete removes a novel and its scenes.
	Delete(ctx context.Context, id int64) error
	// List returns summaries, most recently updated first.
	List(ctx context.Context, filter ListFilter) ([]models.NovelSummary, error)
	Close() error
}

func notFound(id int64) error {
	return apperrors.NewNotFoundError(fmt.Sprintf("novel %d not found", id), nil)
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// Open returns the store selected by driver: "sqlite" opens databasePath,
// "file" keeps JSON documents under dataDir.
func Open(driver, databasePath, dataDir string) (NovelStore, error) {
	switch driver {
	case "sqlite", "":
		return OpenSQLite(databasePath)
	case "file":
		return OpenFileStore(dataDir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
