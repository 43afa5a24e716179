package authoring

import (
	"testing"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCanvasSession(t *testing.T) (*Session, models.Sprite) {
	t.Helper()
	s := NewSession(&models.Novel{}, sequentialIDs())
	palette, ok := s.AddPaletteSprite("img/hero.png", "Hero")
	require.True(t, ok)
	return s, palette
}

func TestDropSpriteCentresOnCursor(t *testing.T) {
	s, palette := newCanvasSession(t)

	placed, ok := s.DropSprite(palette.ID, 300, 300)

	require.True(t, ok)
	assert.Equal(t, 225.0, placed.X)
	assert.Equal(t, 200.0, placed.Y)
	assert.Equal(t, 150.0, placed.Width)
	assert.Equal(t, 200.0, placed.Height)
	assert.Equal(t, 0, placed.ZIndex)
	assert.True(t, placed.IsOnCanvas)
	assert.NotEqual(t, palette.ID, placed.ID)

	view := s.Canvas()
	assert.Len(t, view.Placed, 1)
	assert.Len(t, view.Palette, 1, "the palette entry stays available")
	assert.False(t, view.HintVisible)
}

func TestDropSpriteRejectsUnknownOrPlacedSource(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 10, 10)

	_, ok := s.DropSprite("missing", 0, 0)
	assert.False(t, ok)
	_, ok = s.DropSprite(placed.ID, 0, 0)
	assert.False(t, ok)
}

func TestZIndexCountsPlacedSpritesAndAllowsGaps(t *testing.T) {
	s, palette := newCanvasSession(t)
	a, _ := s.DropSprite(palette.ID, 0, 0)
	b, _ := s.DropSprite(palette.ID, 0, 0)
	c, _ := s.DropSprite(palette.ID, 0, 0)
	assert.Equal(t, []int{0, 1, 2}, []int{a.ZIndex, b.ZIndex, c.ZIndex})

	s.SelectTool(ToolDelete)
	require.True(t, s.Confirm(s.RequestRemoveSprite(b.ID)))

	d, _ := s.DropSprite(palette.ID, 0, 0)
	assert.Equal(t, 2, d.ZIndex, "counter is the number placed, not a renumbering")

	view := s.Canvas()
	require.Len(t, view.Placed, 3)
	assert.Equal(t, a.ID, view.Placed[0].ID)
	assert.Equal(t, c.ID, view.Placed[1].ID, "ties keep insertion order")
	assert.Equal(t, d.ID, view.Placed[2].ID)
}

func TestCanvasOrdersByZIndex(t *testing.T) {
	novel := &models.Novel{Scenes: []models.Scene{{
		ID: "s",
		Sprites: []models.Sprite{
			{ID: "front", ZIndex: 9, IsOnCanvas: true},
			{ID: "back", ZIndex: 0, IsOnCanvas: true},
			{ID: "middle", ZIndex: 4, IsOnCanvas: true},
		},
	}}}
	s := NewSession(novel)

	view := s.Canvas()

	ids := []string{view.Placed[0].ID, view.Placed[1].ID, view.Placed[2].ID}
	assert.Equal(t, []string{"back", "middle", "front"}, ids)
	assert.Empty(t, view.Palette)
}

func TestDragRequiresMoveTool(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 300, 300)

	assert.False(t, s.BeginDrag(placed.ID, 300, 300))

	s.SelectTool(ToolMove)
	assert.False(t, s.BeginDrag(palette.ID, 0, 0), "palette sprites are not on the canvas")
	assert.True(t, s.BeginDrag(placed.ID, 300, 300))
}

func TestDragCommitsOnRelease(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 300, 300)
	s.SelectTool(ToolMove)

	require.True(t, s.BeginDrag(placed.ID, 230, 210))
	require.True(t, s.DragTo(330, 260))

	view := s.Canvas()
	assert.Equal(t, placed.ID, view.Dragging)
	assert.Equal(t, 325.0, view.Placed[0].X)
	assert.Equal(t, 250.0, view.Placed[0].Y)
	assert.Equal(t, 225.0, s.Working().Sprites[1].X, "buffer changes only on release")

	require.True(t, s.EndDrag())
	assert.Equal(t, 325.0, s.Working().Sprites[1].X)
	assert.Equal(t, 250.0, s.Working().Sprites[1].Y)
	assert.False(t, s.DragTo(0, 0))
}

func TestDragIsExclusive(t *testing.T) {
	s, palette := newCanvasSession(t)
	a, _ := s.DropSprite(palette.ID, 0, 0)
	b, _ := s.DropSprite(palette.ID, 0, 0)
	s.SelectTool(ToolMove)

	require.True(t, s.BeginDrag(a.ID, 0, 0))
	assert.False(t, s.BeginDrag(b.ID, 0, 0))
	assert.False(t, s.BeginDrag(a.ID, 0, 0))
}

func TestSwitchingToolAbandonsDrag(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 300, 300)
	s.SelectTool(ToolMove)
	s.BeginDrag(placed.ID, 300, 300)
	s.DragTo(0, 0)

	s.SelectTool(ToolDelete)

	_, dragging := s.Dragging()
	assert.False(t, dragging)
	assert.Equal(t, 225.0, s.Working().Sprites[1].X)
}

func TestRemoveSpriteNeedsDeleteToolAndConfirmation(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 0, 0)

	assert.Nil(t, s.RequestRemoveSprite(placed.ID))

	s.SelectTool(ToolDelete)
	action := s.RequestRemoveSprite(placed.ID)
	require.NotNil(t, action)
	assert.Len(t, s.Canvas().Placed, 1)

	require.True(t, s.Confirm(action))
	assert.Empty(t, s.Canvas().Placed)
	assert.True(t, s.Canvas().HintVisible)
	assert.Nil(t, s.RequestRemoveSprite("missing"))
}

func TestSelectToolIgnoresUnknownTool(t *testing.T) {
	s := NewSession(&models.Novel{})

	s.SelectTool(Tool("lasso"))

	assert.Equal(t, ToolSelect, s.Tool())
}

func TestSaveKeepsOnlyPlacedSprites(t *testing.T) {
	s, palette := newCanvasSession(t)
	placed, _ := s.DropSprite(palette.ID, 300, 300)

	_, ok := s.SaveCurrentScene()
	require.True(t, ok)

	sprites := s.Novel().Scenes[0].Sprites
	require.Len(t, sprites, 1)
	assert.Equal(t, placed.ID, sprites[0].ID)
}

func TestCanvasEditsSurviveSceneSwitch(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil), sequentialIDs())
	palette, ok := s.AddPaletteSprite("img/hero.png", "Hero")
	require.True(t, ok)
	placed, ok := s.DropSprite(palette.ID, 300, 300)
	require.True(t, ok)

	require.True(t, s.SelectScene(1))
	require.True(t, s.SelectScene(0))
	require.Len(t, s.Canvas().Placed, 1)
	assert.Equal(t, placed.ID, s.Novel().Scenes[0].Sprites[0].ID)

	s.SelectTool(ToolMove)
	require.True(t, s.BeginDrag(placed.ID, 300, 300))
	s.DragTo(400, 500)
	require.True(t, s.EndDrag())
	s.SelectScene(1)
	s.SelectScene(0)
	moved := s.Canvas().Placed
	require.Len(t, moved, 1)
	assert.Equal(t, 325.0, moved[0].X)
	assert.Equal(t, 400.0, moved[0].Y)

	s.SelectTool(ToolDelete)
	require.True(t, s.Confirm(s.RequestRemoveSprite(placed.ID)))
	s.SelectScene(1)
	s.SelectScene(0)
	assert.Empty(t, s.Canvas().Placed)
	assert.Empty(t, s.Novel().Scenes[0].Sprites)
}
