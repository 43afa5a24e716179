package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"

	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
)

const (
	novelsDir = "novels"
	metaFile  = "meta.json"
)

type fileMeta struct {
	NextID int64 `json:"next_id"`
}

// FileNovelStore keeps one JSON document per novel under BaseDir/novels.
// Writes are serialized by a store-wide mutex; it is meant for single-node
// development setups.
type FileNovelStore struct {
	files *FileStorage
	mu    sync.Mutex
}

var _ NovelStore = (*FileNovelStore)(nil)

// OpenFileStore opens (creating if needed) a file-backed store in dir.
func OpenFileStore(dir string) (*FileNovelStore, error) {
	files, err := NewFileStorage(dir)
	if err != nil {
		return nil, err
	}
	return &FileNovelStore{files: files}, nil
}

func novelFile(id int64) string { return strconv.FormatInt(id, 10) + ".json" }

func (s *FileNovelStore) nextID() (int64, error) {
	meta := fileMeta{NextID: 1}
	if s.files.FileExists("", metaFile) {
		if err := s.files.LoadJSONFile("", metaFile, &meta); err != nil {
			return 0, err
		}
	}
	id := meta.NextID
	meta.NextID++
	if err := s.files.SaveJSONFile("", metaFile, meta); err != nil {
		return 0, err
	}
	return id, nil
}

// Create stores a new novel.
func (s *FileNovelStore) Create(ctx context.Context, novel *models.Novel) (*models.Novel, error) {
	if novel == nil {
		return nil, apperrors.NewValidationError("novel is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := *novel
	out.Scenes = models.CloneScenes(novel.Scenes)
	models.Normalize(out.Scenes)

	id, err := s.nextID()
	if err != nil {
		return nil, apperrors.NewUnavailableError("allocate novel id", err)
	}
	out.ID = id
	out.CreatedAt = now()
	out.UpdatedAt = out.CreatedAt

	if err := s.files.SaveJSONFile(novelsDir, novelFile(id), &out); err != nil {
		return nil, apperrors.NewUnavailableError("create novel", err)
	}
	return &out, nil
}

// Get loads novel id.
func (s *FileNovelStore) Get(ctx context.Context, id int64) (*models.Novel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load(id)
}

func (s *FileNovelStore) load(id int64) (*models.Novel, error) {
	if !s.files.FileExists(novelsDir, novelFile(id)) {
		return nil, notFound(id)
	}
	data, err := s.files.LoadTextFile(novelsDir, novelFile(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(id)
		}
		return nil, apperrors.NewUnavailableError("load novel", err)
	}
	novel, err := models.DecodeNovel(data)
	if err != nil {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("novel %d is corrupt", id), err)
	}
	return novel, nil
}

// Save replaces an existing novel. Author and creation time are kept from
// the stored copy.
func (s *FileNovelStore) Save(ctx context.Context, novel *models.Novel) error {
	if novel == nil {
		return apperrors.NewValidationError("novel is required", nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.load(novel.ID)
	if err != nil {
		return err
	}
	out := *novel
	out.AuthorID = stored.AuthorID
	out.CreatedAt = stored.CreatedAt
	out.UpdatedAt = now()
	out.Scenes = models.CloneScenes(novel.Scenes)
	models.Normalize(out.Scenes)

	if err := s.files.SaveJSONFile(novelsDir, novelFile(novel.ID), &out); err != nil {
		return apperrors.NewUnavailableError("save novel", err)
	}
	novel.UpdatedAt = out.UpdatedAt
	return nil
}

// Delete removes novel id.
func (s *FileNovelStore) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.files.FileExists(novelsDir, novelFile(id)) {
		return notFound(id)
	}
	if err := s.files.DeleteFile(novelsDir, novelFile(id)); err != nil {
		return apperrors.NewUnavailableError("delete novel", err)
	}
	return nil
}

// List scans every stored novel.
func (s *FileNovelStore) List(ctx context.Context, filter ListFilter) ([]models.NovelSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.files.ListFiles(novelsDir, ".json")
	if err != nil {
		return nil, apperrors.NewUnavailableError("list novels", err)
	}

	out := []models.NovelSummary{}
	for _, name := range names {
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		novel, err := s.load(id)
		if err != nil {
			if apperrors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		if filter.match(novel) {
			out = append(out, novel.Summary())
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Close is a no-op; files are written synchronously.
func (s *FileNovelStore) Close() error { return nil }
