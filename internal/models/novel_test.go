package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleScenes() []Scene {
	return []Scene{
		{
			ID:    "scene_a",
			Name:  "Forest edge",
			Text:  "Two paths lie ahead.",
			Order: 0,
			Choices: []Choice{
				{ID: "c1", Text: "Left", NextScene: 2},
				{ID: "c2", Text: "Right", NextScene: 0},
			},
			Sprites: []Sprite{
				{ID: "s1", URL: "img/hero.png", Name: "Hero", X: 10, Y: 20, Width: 150, Height: 200, ZIndex: 0, IsOnCanvas: true},
			},
		},
		{ID: "scene_b", Name: "Treasure", Text: "A chest.", Order: 1, Choices: []Choice{}, Sprites: []Sprite{}},
	}
}

func TestSortScenesIsIdempotent(t *testing.T) {
	scenes := []Scene{{ID: "c", Order: 2}, {ID: "a", Order: 0}, {ID: "b", Order: 1}}

	SortScenes(scenes)
	first := CloneScenes(scenes)
	SortScenes(scenes)

	assert.Equal(t, first, scenes)
	assert.Equal(t, []string{"a", "b", "c"}, []string{scenes[0].ID, scenes[1].ID, scenes[2].ID})
}

func TestNormalizeProducesDenseOrder(t *testing.T) {
	scenes := []Scene{{ID: "x", Order: 7}, {ID: "y", Order: 3}, {ID: "z", Order: 3}}

	Normalize(scenes)

	assert.True(t, OrdersDense(scenes))
	assert.Equal(t, "y", scenes[0].ID)
	assert.Equal(t, "z", scenes[1].ID, "equal orders keep their relative position")
	assert.NotNil(t, scenes[2].Choices)
	assert.NotNil(t, scenes[2].Sprites)
}

func TestChoiceAcceptsLegacyTargetKeys(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{name: "camel case number", raw: `{"text":"a","nextScene":3}`, want: 3},
		{name: "snake case", raw: `{"text":"a","next_scene":2}`, want: 2},
		{name: "numeric string", raw: `{"text":"a","nextScene":"4"}`, want: 4},
		{name: "zero falls back to legacy key", raw: `{"text":"a","nextScene":0,"next_scene":5}`, want: 5},
		{name: "garbage is end", raw: `{"text":"a","nextScene":"soon"}`, want: 0},
		{name: "missing is end", raw: `{"text":"a"}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Choice
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &c))
			assert.Equal(t, tt.want, c.NextScene)
			assert.Equal(t, "a", c.Text)
		})
	}
}

func TestChoiceAcceptsNumericID(t *testing.T) {
	var c Choice
	require.NoError(t, json.Unmarshal([]byte(`{"id":17,"text":"go"}`), &c))
	assert.Equal(t, "17", c.ID)
}

func TestNovelRoundTrip(t *testing.T) {
	novel := &Novel{ID: 3, Title: "Forest", Description: "demo", IsPublished: true, Scenes: sampleScenes()}

	first, err := json.Marshal(novel)
	require.NoError(t, err)

	decoded, err := DecodeNovel(first)
	require.NoError(t, err)

	second, err := json.Marshal(decoded)
	require.NoError(t, err)

	if diff := cmp.Diff(novel.Scenes, decoded.Scenes); diff != "" {
		t.Fatalf("scenes changed across round trip (-want +got):\n%s", diff)
	}
	assert.JSONEq(t, string(first), string(second))
}

func TestDecodePayloadDefaultsMissingOrder(t *testing.T) {
	raw := `{"title":"t","scenes":[{"id":"a","text":"one"},{"id":"b","text":"two"}]}`

	payload, err := DecodePayload([]byte(raw))
	require.NoError(t, err)

	require.Len(t, payload.Scenes, 2)
	assert.Equal(t, "a", payload.Scenes[0].ID)
	assert.Equal(t, 1, payload.Scenes[1].Order)
	assert.Empty(t, payload.Scenes[0].Choices)
}

func TestDecodeNovelRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeNovel([]byte(`{"scenes": [`))
	assert.Error(t, err)
}

func TestYAMLRoundTrip(t *testing.T) {
	novel := &Novel{ID: 1, Title: "Forest", Scenes: sampleScenes()}

	data, err := EncodeYAML(novel)
	require.NoError(t, err)

	decoded, err := DecodeYAML(data)
	require.NoError(t, err)

	if diff := cmp.Diff(novel.Scenes, decoded.Scenes); diff != "" {
		t.Fatalf("yaml round trip mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "Forest", decoded.Title)
}

func TestPlacedSpritesAndZOrder(t *testing.T) {
	sprites := []Sprite{
		{ID: "top", ZIndex: 5, IsOnCanvas: true},
		{ID: "palette"},
		{ID: "bottom", ZIndex: 1, IsOnCanvas: true},
	}

	placed := PlacedSprites(sprites)
	SortByZIndex(placed)

	require.Len(t, placed, 2)
	assert.Equal(t, "bottom", placed[0].ID)
	assert.Equal(t, "top", placed[1].ID)
}

func TestPayloadIsDetachedCopy(t *testing.T) {
	novel := &Novel{Title: "t", Scenes: sampleScenes()}

	payload := novel.Payload()
	payload.Scenes[0].Choices[0].NextScene = 9

	assert.Equal(t, 2, novel.Scenes[0].Choices[0].NextScene)
}
