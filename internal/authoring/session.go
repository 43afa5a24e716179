// Package authoring implements the editing side of a novel: scene, choice and
// sprite mutations over an in-memory graph, with referential repair when scenes
// are removed.
package authoring

import (
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/google/uuid"
)

// NoScene is the active index when nothing is selected.
const NoScene = -1

// Notice is a user-facing, non-fatal message produced by an operation.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// NoticeLevel classifies a Notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Working is the editable copy of the active scene. Edits stay here until
// SaveCurrentScene commits them.
type Working struct {
	Name       string          `json:"name"`
	Text       string          `json:"text"`
	Background string          `json:"background"`
	Choices    []models.Choice `json:"choices"`
	Sprites    []models.Sprite `json:"sprites"`
}

// Session is one editing session over one novel. It is not safe for
// concurrent use; a session has exactly one owner.
type Session struct {
	novel   *models.Novel
	current int
	work    Working

	tool    Tool
	drag    *dragState
	pending *PendingAction

	newID  func(prefix string) string
	logger *utils.Logger
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(logger *utils.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIDGenerator replaces the id generator; tests use it for stable ids.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(s *Session) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func uuidID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// NewSession starts editing novel. Scenes are put in canonical order, and a
// default scene is created when the novel has none.
func NewSession(novel *models.Novel, opts ...Option) *Session {
	if novel == nil {
		novel = &models.Novel{}
	}
	if novel.Scenes == nil {
		novel.Scenes = []models.Scene{}
	}
	models.Normalize(novel.Scenes)

	s := &Session{
		novel:   novel,
		current: NoScene,
		tool:    ToolSelect,
		newID:   uuidID,
		logger:  utils.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(novel.Scenes) == 0 {
		s.AddScene()
	} else {
		s.SelectScene(0)
	}
	return s
}

// Novel returns the underlying graph. Callers must not mutate it directly.
func (s *Session) Novel() *models.Novel { return s.novel }

// SceneCount returns the number of scenes.
func (s *Session) SceneCount() int { return len(s.novel.Scenes) }

// Current returns the active scene index, or NoScene.
func (s *Session) Current() int { return s.current }

// Working returns a copy of the active scene's working state.
func (s *Session) Working() Working {
	return Working{
		Name:       s.work.Name,
		Text:       s.work.Text,
		Background: s.work.Background,
		Choices:    append([]models.Choice{}, s.work.Choices...),
		Sprites:    append([]models.Sprite{}, s.work.Sprites...),
	}
}

func (s *Session) hasActive() bool {
	return s.current >= 0 && s.current < len(s.novel.Scenes)
}

func defaultSceneName(index int) string {
	return fmt.Sprintf("Scene %d", index+1)
}

// AddScene appends an empty scene and makes it active.
func (s *Session) AddScene() int {
	index := len(s.novel.Scenes)
	scene := models.Scene{
		ID:      s.newID("scene"),
		Name:    defaultSceneName(index),
		Order:   index,
		Choices: []models.Choice{},
		Sprites: []models.Sprite{},
	}
	s.novel.Scenes = append(s.novel.Scenes, scene)
	s.SelectScene(index)

	s.logger.Debug("scene added", map[string]interface{}{"index": index, "scene_id": scene.ID})
	return index
}

// SelectScene loads scene index into the working copy. Unsaved edits of the
// previously active scene are discarded, and so is any pending action.
func (s *Session) SelectScene(index int) bool {
	if index < 0 || index >= len(s.novel.Scenes) {
		return false
	}
	s.endDrag(false)
	s.pending = nil

	scene := s.novel.Scenes[index]
	s.current = index
	name := scene.Name
	if name == "" {
		name = defaultSceneName(index)
	}
	s.work = Working{
		Name:       name,
		Text:       scene.Text,
		Background: scene.Background,
		Choices:    append([]models.Choice{}, scene.Choices...),
		Sprites:    append([]models.Sprite{}, scene.Sprites...),
	}
	return true
}

// RenameScene renames a scene in the store directly, as the scene list does.
func (s *Session) RenameScene(index int, name string) {
	if index < 0 || index >= len(s.novel.Scenes) {
		return
	}
	s.novel.Scenes[index].Name = name
	if index == s.current {
		s.work.Name = name
	}
}

// UpdateSceneName edits the active scene's working name.
func (s *Session) UpdateSceneName(name string) {
	if s.hasActive() {
		s.work.Name = name
	}
}

// UpdateSceneText edits the active scene's working text.
func (s *Session) UpdateSceneText(text string) {
	if s.hasActive() {
		s.work.Text = text
	}
}

// UpdateSceneBackground sets the active scene's background reference.
func (s *Session) UpdateSceneBackground(ref string) {
	if s.hasActive() {
		s.work.Background = ref
	}
}

// SetTitle sets the novel title.
func (s *Session) SetTitle(title string) { s.novel.Title = title }

// SetDescription sets the novel description.
func (s *Session) SetDescription(description string) { s.novel.Description = description }

// SetPublished sets the publish flag sent with the next save.
func (s *Session) SetPublished(published bool) { s.novel.IsPublished = published }

// SaveCurrentScene commits the working copy into the store. Only placed
// sprites are kept; palette entries are dropped.
func (s *Session) SaveCurrentScene() (Notice, bool) {
	if !s.hasActive() {
		s.logger.Warn("save requested without an active scene", nil)
		return Notice{Level: NoticeWarning, Message: "select or create a scene first"}, false
	}
	s.endDrag(true)

	scene := &s.novel.Scenes[s.current]
	scene.Name = s.work.Name
	scene.Text = s.work.Text
	scene.Background = s.work.Background
	scene.Choices = append([]models.Choice{}, s.work.Choices...)
	scene.Sprites = models.PlacedSprites(s.work.Sprites)

	s.logger.Debug("scene committed", map[string]interface{}{
		"index":   s.current,
		"choices": len(scene.Choices),
		"sprites": len(scene.Sprites),
	})
	return Notice{Level: NoticeSuccess, Message: "scene saved"}, true
}

// Payload commits the active scene and returns the body for a save request.
func (s *Session) Payload() models.NovelPayload {
	s.SaveCurrentScene()
	models.RenumberScenes(s.novel.Scenes)
	return s.novel.Payload()
}
