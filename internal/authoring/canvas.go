package authoring

import (
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/models"
)

// Tool is the active canvas tool.
type Tool string

const (
	ToolSelect Tool = "select"
	ToolMove   Tool = "move"
	ToolDelete Tool = "delete"
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	switch t {
	case ToolSelect, ToolMove, ToolDelete:
		return true
	}
	return false
}

// dragState is the geometry of a sprite while a drag gesture owns it.
type dragState struct {
	spriteID string
	offsetX  float64
	offsetY  float64
	x, y     float64
}

// CanvasView is what a renderer needs to draw the scene being edited.
type CanvasView struct {
	Tool        Tool            `json:"tool"`
	Background  string          `json:"background"`
	Placed      []models.Sprite `json:"placed"`
	Palette     []models.Sprite `json:"palette"`
	Dragging    string          `json:"dragging,omitempty"`
	HintVisible bool            `json:"hint_visible"`
}

// Tool returns the active tool.
func (s *Session) Tool() Tool { return s.tool }

// SelectTool switches the canvas tool. Unknown tools are ignored. Switching
// away from move abandons an unfinished drag.
func (s *Session) SelectTool(tool Tool) {
	if !tool.Valid() {
		return
	}
	if tool != ToolMove {
		s.endDrag(false)
	}
	s.tool = tool
}

func (s *Session) spriteIndex(id string) int {
	for i, sprite := range s.work.Sprites {
		if sprite.ID == id {
			return i
		}
	}
	return -1
}

// AddPaletteSprite registers an unplaced sprite for the active scene.
func (s *Session) AddPaletteSprite(url, name string) (models.Sprite, bool) {
	if !s.hasActive() || url == "" {
		return models.Sprite{}, false
	}
	sprite := models.Sprite{
		ID:     s.newID("sprite"),
		URL:    url,
		Name:   name,
		Width:  models.DefaultSpriteWidth,
		Height: models.DefaultSpriteHeight,
	}
	s.work.Sprites = append(s.work.Sprites, sprite)
	return sprite, true
}

// DropSprite places a new instance of palette sprite paletteID centred on the
// drop point. It lands on top of everything already placed.
func (s *Session) DropSprite(paletteID string, px, py float64) (models.Sprite, bool) {
	if !s.hasActive() {
		return models.Sprite{}, false
	}
	i := s.spriteIndex(paletteID)
	if i < 0 || s.work.Sprites[i].IsOnCanvas {
		return models.Sprite{}, false
	}
	source := s.work.Sprites[i]

	width, height := source.Width, source.Height
	if width <= 0 {
		width = models.DefaultSpriteWidth
	}
	if height <= 0 {
		height = models.DefaultSpriteHeight
	}

	placed := models.Sprite{
		ID:         s.newID("sprite_instance"),
		URL:        source.URL,
		Name:       source.Name,
		X:          px - width/2,
		Y:          py - height/2,
		Width:      width,
		Height:     height,
		ZIndex:     len(models.PlacedSprites(s.work.Sprites)),
		IsOnCanvas: true,
	}
	s.work.Sprites = append(s.work.Sprites, placed)
	s.storeSprites()

	s.logger.Debug("sprite placed", map[string]interface{}{
		"sprite_id": placed.ID,
		"x":         placed.X,
		"y":         placed.Y,
		"z_index":   placed.ZIndex,
	})
	return placed, true
}

// BeginDrag starts moving a placed sprite. It requires the move tool and
// fails while another drag is in progress.
func (s *Session) BeginDrag(spriteID string, cursorX, cursorY float64) bool {
	if s.tool != ToolMove || s.drag != nil {
		return false
	}
	i := s.spriteIndex(spriteID)
	if i < 0 || !s.work.Sprites[i].IsOnCanvas {
		return false
	}
	sprite := s.work.Sprites[i]
	s.drag = &dragState{
		spriteID: spriteID,
		offsetX:  cursorX - sprite.X,
		offsetY:  cursorY - sprite.Y,
		x:        sprite.X,
		y:        sprite.Y,
	}
	return true
}

// DragTo moves the dragged sprite so it keeps its grab offset from the cursor.
func (s *Session) DragTo(cursorX, cursorY float64) bool {
	if s.drag == nil {
		return false
	}
	s.drag.x = cursorX - s.drag.offsetX
	s.drag.y = cursorY - s.drag.offsetY
	return true
}

// EndDrag releases the gesture and commits the position to the buffer.
func (s *Session) EndDrag() bool {
	return s.endDrag(true)
}

func (s *Session) endDrag(commit bool) bool {
	if s.drag == nil {
		return false
	}
	d := s.drag
	s.drag = nil
	if !commit {
		return false
	}
	i := s.spriteIndex(d.spriteID)
	if i < 0 {
		return false
	}
	s.work.Sprites[i].X = d.x
	s.work.Sprites[i].Y = d.y
	s.storeSprites()
	return true
}

// Dragging returns the id of the sprite owned by a drag gesture.
func (s *Session) Dragging() (string, bool) {
	if s.drag == nil {
		return "", false
	}
	return s.drag.spriteID, true
}

// RequestRemoveSprite stages removal of a sprite. It requires the delete tool
// and is refused for a sprite that is being dragged.
func (s *Session) RequestRemoveSprite(spriteID string) *PendingAction {
	if s.tool != ToolDelete {
		return nil
	}
	if id, ok := s.Dragging(); ok && id == spriteID {
		return nil
	}
	i := s.spriteIndex(spriteID)
	if i < 0 {
		return nil
	}
	name := s.work.Sprites[i].Name
	if name == "" {
		name = spriteID
	}
	return s.stage(&PendingAction{
		Kind:     ActionRemoveSprite,
		Index:    i,
		SpriteID: spriteID,
		Prompt:   fmt.Sprintf("Remove sprite %q from the scene?", name),
	})
}

func (s *Session) removeSprite(spriteID string) bool {
	if id, ok := s.Dragging(); ok && id == spriteID {
		return false
	}
	i := s.spriteIndex(spriteID)
	if i < 0 {
		return false
	}
	s.work.Sprites = append(s.work.Sprites[:i], s.work.Sprites[i+1:]...)
	s.storeSprites()
	return true
}

// storeSprites writes the placed sprites straight to the active scene. Canvas
// edits do not wait for SaveCurrentScene.
func (s *Session) storeSprites() {
	if s.hasActive() {
		s.novel.Scenes[s.current].Sprites = models.PlacedSprites(s.work.Sprites)
	}
}

// Canvas projects the working sprite buffer for rendering.
func (s *Session) Canvas() CanvasView {
	view := CanvasView{
		Tool:       s.tool,
		Background: s.work.Background,
		Placed:     []models.Sprite{},
		Palette:    []models.Sprite{},
	}
	for _, sprite := range s.work.Sprites {
		if !sprite.IsOnCanvas {
			view.Palette = append(view.Palette, sprite)
			continue
		}
		if s.drag != nil && s.drag.spriteID == sprite.ID {
			sprite.X, sprite.Y = s.drag.x, s.drag.y
		}
		view.Placed = append(view.Placed, sprite)
	}
	models.SortByZIndex(view.Placed)
	if s.drag != nil {
		view.Dragging = s.drag.spriteID
	}
	view.HintVisible = len(view.Placed) == 0
	return view
}
