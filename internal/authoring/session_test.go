package authoring

import (
	"fmt"
	"testing"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() Option {
	n := 0
	return WithIDGenerator(func(prefix string) string {
		n++
		return fmt.Sprintf("%s_%d", prefix, n)
	})
}

// novelWithTargets builds count scenes; scene i has one choice per target.
func novelWithTargets(count int, targets []int) *models.Novel {
	novel := &models.Novel{Title: "test"}
	for i := 0; i < count; i++ {
		scene := models.Scene{ID: fmt.Sprintf("s%d", i), Name: fmt.Sprintf("S%d", i), Order: i}
		for j, t := range targets {
			scene.Choices = append(scene.Choices, models.Choice{ID: fmt.Sprintf("c%d_%d", i, j), NextScene: t})
		}
		novel.Scenes = append(novel.Scenes, scene)
	}
	return novel
}

func TestNewSessionSynthesizesScene(t *testing.T) {
	s := NewSession(&models.Novel{}, sequentialIDs())

	require.Equal(t, 1, s.SceneCount())
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, "Scene 1", s.Novel().Scenes[0].Name)
	assert.Equal(t, 0, s.Novel().Scenes[0].Order)
}

func TestNewSessionSortsByOrder(t *testing.T) {
	novel := &models.Novel{Scenes: []models.Scene{{ID: "b", Order: 4}, {ID: "a", Order: 1}}}

	s := NewSession(novel)

	assert.Equal(t, "a", s.Novel().Scenes[0].ID)
	assert.True(t, models.OrdersDense(s.Novel().Scenes))
}

func TestAddSceneAppendsAndActivates(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil), sequentialIDs())

	before := s.SceneCount()
	index := s.AddScene()

	assert.Equal(t, before+1, s.SceneCount())
	assert.Equal(t, index, s.Current())
	assert.Equal(t, 2, s.Novel().Scenes[index].Order)
	assert.Equal(t, "Scene 3", s.Working().Name)
	assert.True(t, models.OrdersDense(s.Novel().Scenes))
}

func TestDeleteSceneRepairsEveryChoice(t *testing.T) {
	targets := []int{0, 1, 2, 3, 4, 5, 9}

	for k := 0; k < 5; k++ {
		t.Run(fmt.Sprintf("delete_%d", k), func(t *testing.T) {
			s := NewSession(novelWithTargets(5, targets))

			action := s.RequestDeleteScene(k)
			require.NotNil(t, action)
			require.True(t, s.Confirm(action))

			require.Equal(t, 4, s.SceneCount())
			assert.True(t, models.OrdersDense(s.Novel().Scenes))
			for _, scene := range s.Novel().Scenes {
				require.NotEqual(t, fmt.Sprintf("s%d", k), scene.ID)
				for j, choice := range scene.Choices {
					before := targets[j]
					want := before
					switch {
					case before > k+1:
						want = before - 1
					case before == k+1:
						want = 0
					}
					assert.Equal(t, want, choice.NextScene, "target %d after deleting %d", before, k)
				}
			}
		})
	}
}

func TestRemoveSceneLeavesInputUntouched(t *testing.T) {
	scenes := novelWithTargets(3, []int{3}).Scenes

	out := RemoveScene(scenes, 0)

	assert.Len(t, out, 2)
	assert.Equal(t, 3, scenes[1].Choices[0].NextScene)
	assert.Equal(t, 2, out[0].Choices[0].NextScene)
	assert.Len(t, RemoveScene(scenes, 7), 3)
}

func TestDeleteSceneNeedsConfirmation(t *testing.T) {
	s := NewSession(novelWithTargets(3, nil))

	action := s.RequestDeleteScene(1)
	require.NotNil(t, action)
	assert.Equal(t, 3, s.SceneCount(), "requesting must not delete")
	assert.Contains(t, action.Prompt, "scene 2")

	assert.True(t, s.Cancel(action))
	assert.Equal(t, 3, s.SceneCount())
	assert.False(t, s.Confirm(action), "cancelled actions cannot be confirmed")
	assert.Nil(t, s.RequestDeleteScene(3), "out of range is a no-op")
}

func TestConfirmRejectsStaleAction(t *testing.T) {
	s := NewSession(novelWithTargets(3, nil))

	first := s.RequestDeleteScene(0)
	second := s.RequestDeleteScene(2)

	assert.False(t, s.Confirm(first))
	assert.True(t, s.Confirm(second))
	assert.Equal(t, 2, s.SceneCount())
	assert.Nil(t, s.Pending())
}

func TestDeleteSceneSelectsFallback(t *testing.T) {
	s := NewSession(novelWithTargets(4, nil))
	s.SelectScene(3)

	require.True(t, s.Confirm(s.RequestDeleteScene(2)))
	assert.Equal(t, 1, s.Current())

	require.True(t, s.Confirm(s.RequestDeleteScene(0)))
	assert.Equal(t, 0, s.Current())
}

func TestDeleteLastSceneSynthesizesDefault(t *testing.T) {
	s := NewSession(novelWithTargets(1, []int{1}), sequentialIDs())

	require.True(t, s.Confirm(s.RequestDeleteScene(0)))

	require.Equal(t, 1, s.SceneCount())
	assert.Equal(t, 0, s.Current())
	assert.Equal(t, "Scene 1", s.Novel().Scenes[0].Name)
	assert.Empty(t, s.Novel().Scenes[0].Choices)
}

func TestAddChoiceDefaultsTarget(t *testing.T) {
	single := NewSession(novelWithTargets(1, nil))
	_, ok := single.AddChoice()
	require.True(t, ok)
	assert.Equal(t, 1, single.Working().Choices[0].NextScene)

	multi := NewSession(novelWithTargets(3, nil))
	multi.AddChoice()
	assert.Equal(t, 2, multi.Working().Choices[0].NextScene)
}

func TestChoiceEditsAreIndexChecked(t *testing.T) {
	s := NewSession(novelWithTargets(3, nil), sequentialIDs())
	s.AddChoice()
	s.AddChoice()
	s.AddChoice()
	s.UpdateChoiceText(0, "a")
	s.UpdateChoiceText(1, "b")
	s.UpdateChoiceText(2, "c")

	s.UpdateChoiceText(3, "ignored")
	s.UpdateChoiceNextScene(-1, 3)
	s.UpdateChoiceNextScene(2, 0)

	s.MoveChoiceUp(0)
	s.MoveChoiceDown(2)
	assert.Equal(t, []string{"a", "b", "c"}, choiceTexts(s))

	s.MoveChoiceUp(2)
	assert.Equal(t, []string{"a", "c", "b"}, choiceTexts(s))
	s.MoveChoiceDown(0)
	assert.Equal(t, []string{"c", "a", "b"}, choiceTexts(s))
	assert.Equal(t, 0, s.Working().Choices[0].NextScene)

	action := s.RequestDeleteChoice(1)
	require.NotNil(t, action)
	assert.Len(t, s.Working().Choices, 3)
	require.True(t, s.Confirm(action))
	assert.Equal(t, []string{"c", "b"}, choiceTexts(s))
	assert.Nil(t, s.RequestDeleteChoice(5))
}

func choiceTexts(s *Session) []string {
	var out []string
	for _, c := range s.Working().Choices {
		out = append(out, c.Text)
	}
	return out
}

func TestWorkingEditsCommitOnSave(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil))
	s.UpdateSceneName("Opening")
	s.UpdateSceneText("It was a dark night.")
	s.UpdateSceneBackground("bg/night.png")
	s.AddChoice()

	assert.Equal(t, "S0", s.Novel().Scenes[0].Name, "store is untouched before save")

	notice, ok := s.SaveCurrentScene()
	require.True(t, ok)
	assert.Equal(t, NoticeSuccess, notice.Level)

	scene := s.Novel().Scenes[0]
	assert.Equal(t, "Opening", scene.Name)
	assert.Equal(t, "It was a dark night.", scene.Text)
	assert.Equal(t, "bg/night.png", scene.Background)
	assert.Len(t, scene.Choices, 1)
}

func TestSelectSceneDiscardsUnsavedEdits(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil))
	s.UpdateSceneText("draft")

	require.True(t, s.SelectScene(1))
	require.True(t, s.SelectScene(0))

	assert.Equal(t, "", s.Working().Text)
	assert.False(t, s.SelectScene(2))
}

func TestSaveWithoutActiveSceneWarns(t *testing.T) {
	s := &Session{novel: &models.Novel{}, current: NoScene, logger: utils.NopLogger()}

	notice, ok := s.SaveCurrentScene()

	assert.False(t, ok)
	assert.Equal(t, NoticeWarning, notice.Level)
	_, added := s.AddChoice()
	assert.False(t, added)
}

func TestRenameSceneUpdatesStoreAndWorkingCopy(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil))

	s.RenameScene(0, "Prologue")
	s.RenameScene(1, "Epilogue")
	s.RenameScene(9, "ignored")

	assert.Equal(t, "Prologue", s.Working().Name)
	assert.Equal(t, "Epilogue", s.Novel().Scenes[1].Name)
}

func TestPayloadCommitsActiveScene(t *testing.T) {
	s := NewSession(novelWithTargets(2, nil))
	s.SetTitle("Forest")
	s.SetDescription("demo")
	s.SetPublished(true)
	s.UpdateSceneText("committed by payload")

	payload := s.Payload()

	assert.Equal(t, "Forest", payload.Title)
	assert.True(t, payload.IsPublished)
	assert.Equal(t, "committed by payload", payload.Scenes[0].Text)
	assert.Equal(t, "committed by payload", s.Novel().Scenes[0].Text)
}

func TestSceneListProjection(t *testing.T) {
	novel := &models.Novel{Scenes: []models.Scene{
		{ID: "a", Text: "short", Order: 0},
		{ID: "b", Name: "Long", Text: string(make([]rune, 60)), Order: 1, Sprites: []models.Sprite{{ID: "x"}}},
	}}
	s := NewSession(novel)

	list := s.SceneList()

	require.Len(t, list, 2)
	assert.Equal(t, "Scene 1", list[0].Name)
	assert.True(t, list[0].Active)
	assert.Equal(t, "short", list[0].Preview)
	assert.Equal(t, 53, len([]rune(list[1].Preview)))
	assert.Equal(t, 1, list[1].SpriteCount)

	options := s.TargetOptions()
	require.Len(t, options, 3)
	assert.Equal(t, 2, options[1].Ordinal)
	assert.Equal(t, models.EndOfStory, options[2].Ordinal)
}

func choiceIDs(choices []models.Choice) []string {
	var out []string
	for _, c := range choices {
		out = append(out, c.ID)
	}
	return out
}

func TestSceneSwitchDropsPendingChoiceDelete(t *testing.T) {
	s := NewSession(novelWithTargets(2, []int{1, 2}))

	action := s.RequestDeleteChoice(0)
	require.NotNil(t, action)
	require.True(t, s.SelectScene(1))

	assert.Nil(t, s.Pending())
	assert.False(t, s.Confirm(action))
	assert.Equal(t, []string{"c1_0", "c1_1"}, choiceIDs(s.Working().Choices))
	assert.Equal(t, []string{"c0_0", "c0_1"}, choiceIDs(s.Novel().Scenes[0].Choices))
}

func TestChoiceDeleteFollowsMovedChoice(t *testing.T) {
	s := NewSession(novelWithTargets(2, []int{1, 2}))

	action := s.RequestDeleteChoice(0)
	require.NotNil(t, action)
	assert.Equal(t, "c0_0", action.ChoiceID)
	s.MoveChoiceDown(0)

	require.True(t, s.Confirm(action))
	assert.Equal(t, []string{"c0_1"}, choiceIDs(s.Working().Choices))
}

func TestChoiceDeleteWithoutIDsUsesPosition(t *testing.T) {
	novel := novelWithTargets(1, []int{0, 0})
	novel.Scenes[0].Choices[0].ID = ""
	novel.Scenes[0].Choices[1].ID = ""
	s := NewSession(novel)
	s.UpdateChoiceText(1, "second")

	require.True(t, s.Confirm(s.RequestDeleteChoice(0)))
	require.Len(t, s.Working().Choices, 1)
	assert.Equal(t, "second", s.Working().Choices[0].Text)
}
