package main

import (
	"fmt"
	"io"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/playback"
	"github.com/spf13/cobra"
)

// finding is one structural problem.
type finding struct {
	Scene  int
	Choice int
	Detail string
}

func newCheckCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Report structural problems in a novel",
		Long: `Lists choices whose target is outside the novel (these fall back to the
next scene during play), choices that loop to their own scene, and placed
sprites without an image. With --strict any finding makes the command fail.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novel, err := readNovel(args[0])
			if err != nil {
				return err
			}
			findings := checkNovel(novel)
			printFindings(cmd.OutOrStdout(), novel, findings)
			if strict && len(findings) > 0 {
				return fmt.Errorf("%d problem(s) found", len(findings))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when problems are found")
	return cmd
}

func checkNovel(novel *models.Novel) []finding {
	var findings []finding
	count := len(novel.Scenes)
	for i, scene := range novel.Scenes {
		for k, choice := range scene.Choices {
			if playback.Classify(choice.NextScene, count) == playback.ChoiceAdvance {
				findings = append(findings, finding{
					Scene:  i + 1,
					Choice: k + 1,
					Detail: fmt.Sprintf("targets scene %d of %d; play continues with the next scene", choice.NextScene, count),
				})
			}
			if choice.NextScene == i+1 {
				findings = append(findings, finding{
					Scene:  i + 1,
					Choice: k + 1,
					Detail: "loops back to its own scene",
				})
			}
		}
		for _, sprite := range models.PlacedSprites(scene.Sprites) {
			if sprite.URL == "" {
				findings = append(findings, finding{
					Scene:  i + 1,
					Detail: fmt.Sprintf("sprite %q on canvas has no image", spriteName(sprite)),
				})
			}
		}
	}
	return findings
}

func printFindings(out io.Writer, novel *models.Novel, findings []finding) {
	title := novel.Title
	if title == "" {
		title = "novel"
	}
	fmt.Fprintf(out, "%s: %d scene(s)\n", title, len(novel.Scenes))
	if len(findings) == 0 {
		fmt.Fprintln(out, "no problems found")
		return
	}
	for _, f := range findings {
		if f.Choice > 0 {
			fmt.Fprintf(out, "scene %d, choice %d: %s\n", f.Scene, f.Choice, f.Detail)
		} else {
			fmt.Fprintf(out, "scene %d: %s\n", f.Scene, f.Detail)
		}
	}
}
