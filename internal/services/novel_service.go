// internal/services/novel_service.go
package services

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/storage"
	"github.com/Corphon/NovelBuilder/internal/utils"
)

// Novel event types.
const (
	EventNovelSaved     = "novel_saved"
	EventNovelPublished = "novel_published"
	EventNovelDeleted   = "novel_deleted"
)

// DefaultNovelTitle is used when a novel is created without a title.
const DefaultNovelTitle = "Untitled"

// NovelEvent is pushed to subscribers after a save, publish or delete.
type NovelEvent struct {
	Type        string    `json:"type"`
	NovelID     int64     `json:"novel_id"`
	Title       string    `json:"title"`
	IsPublished bool      `json:"is_published"`
	SceneCount  int       `json:"scene_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// EventPublisher receives novel events, e.g. the websocket hub.
type EventPublisher interface {
	PublishNovelEvent(event NovelEvent)
}

// NovelService enforces ownership and the publish precondition, and serializes
// writes per novel.
type NovelService struct {
	store     storage.NovelStore
	locks     *LockManager
	publisher EventPublisher
	logger    *utils.Logger
}

// NewNovelService creates the service. publisher may be nil.
func NewNovelService(store storage.NovelStore, locks *LockManager, publisher EventPublisher, logger *utils.Logger) *NovelService {
	if locks == nil {
		locks = NewLockManager()
	}
	if logger == nil {
		logger = utils.NopLogger()
	}
	return &NovelService{store: store, locks: locks, publisher: publisher, logger: logger}
}

// SetPublisher replaces the event receiver.
func (s *NovelService) SetPublisher(publisher EventPublisher) {
	s.publisher = publisher
}

func (s *NovelService) publish(eventType string, novel *models.Novel) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishNovelEvent(NovelEvent{
		Type:        eventType,
		NovelID:     novel.ID,
		Title:       novel.Title,
		IsPublished: novel.IsPublished,
		SceneCount:  len(novel.Scenes),
		Timestamp:   time.Now().UTC(),
	})
}

// CreateNovel creates an empty, unpublished novel.
func (s *NovelService) CreateNovel(ctx context.Context, authorID, title, description string) (*models.Novel, error) {
	if authorID == "" {
		return nil, apperrors.NewUnauthorizedError("author is required", nil)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultNovelTitle
	}
	novel, err := s.store.Create(ctx, &models.Novel{
		AuthorID:    authorID,
		Title:       title,
		Description: description,
		Scenes:      []models.Scene{},
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("novel created", map[string]interface{}{"novel_id": novel.ID, "author_id": authorID})
	return novel, nil
}

func (s *NovelService) owned(ctx context.Context, id int64, authorID string) (*models.Novel, error) {
	if authorID == "" {
		return nil, apperrors.NewUnauthorizedError("author is required", nil)
	}
	novel, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if novel.AuthorID != authorID {
		return nil, apperrors.NewForbiddenError("no access to this novel", nil)
	}
	return novel, nil
}

// GetNovel returns the author's own novel for editing.
func (s *NovelService) GetNovel(ctx context.Context, id int64, authorID string) (*models.Novel, error) {
	var novel *models.Novel
	err := s.locks.ExecuteWithNovelReadLock(id, func() error {
		var err error
		novel, err = s.owned(ctx, id, authorID)
		return err
	})
	return novel, err
}

// ViewNovel returns a novel for reading. Published novels are public;
// drafts are visible to their author only.
func (s *NovelService) ViewNovel(ctx context.Context, id int64, viewerID string) (*models.Novel, error) {
	var novel *models.Novel
	err := s.locks.ExecuteWithNovelReadLock(id, func() error {
		var err error
		novel, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !novel.IsPublished && (viewerID == "" || viewerID != novel.AuthorID) {
		return nil, apperrors.NewForbiddenError("this novel is not published", nil)
	}
	return novel, nil
}

// SaveNovel replaces the novel's metadata and scenes with the payload.
func (s *NovelService) SaveNovel(ctx context.Context, id int64, authorID string, payload *models.NovelPayload) (*models.Novel, error) {
	if payload == nil {
		return nil, apperrors.NewValidationError("no data to save", nil)
	}

	var saved *models.Novel
	err := s.locks.ExecuteWithNovelLock(id, func() error {
		novel, err := s.owned(ctx, id, authorID)
		if err != nil {
			return err
		}
		novel.Title = payload.Title
		novel.Description = payload.Description
		novel.IsPublished = payload.IsPublished
		novel.Scenes = models.CloneScenes(payload.Scenes)
		models.Normalize(novel.Scenes)

		if err := s.store.Save(ctx, novel); err != nil {
			return err
		}
		saved = novel
		return nil
	})
	if err != nil {
		s.logger.Warn("save novel failed", map[string]interface{}{"novel_id": id, "error": err.Error()})
		return nil, err
	}

	s.logger.Info("novel saved", map[string]interface{}{
		"novel_id": id,
		"scenes":   len(saved.Scenes),
	})
	s.publish(EventNovelSaved, saved)
	return saved, nil
}

// PublishNovel publishes a novel. A novel without scenes is refused.
func (s *NovelService) PublishNovel(ctx context.Context, id int64, authorID string) (*models.Novel, error) {
	var published *models.Novel
	err := s.locks.ExecuteWithNovelLock(id, func() error {
		novel, err := s.owned(ctx, id, authorID)
		if err != nil {
			return err
		}
		if len(novel.Scenes) == 0 {
			return apperrors.NewValidationError("add at least one scene before publishing", nil)
		}
		novel.IsPublished = true
		if err := s.store.Save(ctx, novel); err != nil {
			return err
		}
		published = novel
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("novel published", map[string]interface{}{"novel_id": id})
	s.publish(EventNovelPublished, published)
	return published, nil
}

// DeleteNovel deletes the author's own novel.
func (s *NovelService) DeleteNovel(ctx context.Context, id int64, authorID string) error {
	var deleted *models.Novel
	err := s.locks.ExecuteWithNovelLock(id, func() error {
		novel, err := s.owned(ctx, id, authorID)
		if err != nil {
			return err
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return err
		}
		deleted = novel
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("novel deleted", map[string]interface{}{"novel_id": id})
	s.publish(EventNovelDeleted, deleted)
	return nil
}

// ListPublished returns published novels, most recently updated first.
func (s *NovelService) ListPublished(ctx context.Context, limit int) ([]models.NovelSummary, error) {
	return s.store.List(ctx, storage.ListFilter{PublishedOnly: true, Limit: limit})
}

// ListByAuthor returns all of an author's novels.
func (s *NovelService) ListByAuthor(ctx context.Context, authorID string) ([]models.NovelSummary, error) {
	if authorID == "" {
		return nil, apperrors.NewUnauthorizedError("author is required", nil)
	}
	return s.store.List(ctx, storage.ListFilter{AuthorID: authorID})
}
