package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/playback"
	"github.com/spf13/cobra"
)

const playHelp = `commands: <number> choose, n next, b back, r restart, q quit`

func newPlayCmd(opts *options) *cobra.Command {
	var (
		novelID int64
		script  string
	)

	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Read a novel in the terminal",
		Long: `Plays a novel from a JSON or YAML file, or from the server with --id.
With --script the steps are replayed and every state is printed instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			novel, err := loadForPlay(cmd.Context(), opts, args, novelID)
			if err != nil {
				return err
			}
			engine := playback.New(novel.Scenes, playback.WithLogger(opts.logger()))
			out := cmd.OutOrStdout()

			if script != "" {
				return replayScript(out, novel.Scenes, script)
			}
			return playInteractive(cmd.InOrStdin(), out, novel.Title, engine)
		},
	}
	cmd.Flags().Int64Var(&novelID, "id", 0, "play a published novel from the server")
	cmd.Flags().StringVar(&script, "script", "", `replay steps such as "c0 n b r" and print each state`)
	return cmd
}

func loadForPlay(ctx context.Context, opts *options, args []string, novelID int64) (*models.Novel, error) {
	switch {
	case len(args) == 1:
		return readNovel(args[0])
	case novelID > 0:
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, opts.timeout)
		defer cancel()
		return opts.client().ViewNovel(ctx, novelID)
	default:
		return nil, fmt.Errorf("give a file or --id")
	}
}

func replayScript(out io.Writer, scenes []models.Scene, script string) error {
	steps, err := playback.ParseSteps(script)
	if err != nil {
		return err
	}
	for i, state := range playback.Replay(scenes, steps) {
		if i == 0 {
			fmt.Fprintf(out, "start   %s\n", state)
			continue
		}
		fmt.Fprintf(out, "%-7s %s\n", describeStep(steps[i-1]), state)
	}
	return nil
}

func describeStep(step playback.Step) string {
	if step.Op == playback.OpChoose {
		return "c" + strconv.Itoa(step.Choice)
	}
	return string(step.Op)
}

// playInteractive reads commands line by line until q or end of input.
func playInteractive(in io.Reader, out io.Writer, title string, engine *playback.Engine) error {
	if title != "" {
		fmt.Fprintf(out, "== %s ==\n", title)
	}
	render(out, engine.View())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		case "?", "h", "help":
			fmt.Fprintln(out, playHelp)
			continue
		}

		// numbers are 1-based choice numbers
		if n, err := strconv.Atoi(line); err == nil {
			engine.Choose(n - 1)
		} else if step, err := playback.ParseStep(line); err == nil {
			engine.Apply(step)
		} else {
			fmt.Fprintln(out, playHelp)
			continue
		}
		render(out, engine.View())
	}
}

func render(out io.Writer, view playback.View) {
	switch view.State.Kind {
	case playback.KindEmpty:
		fmt.Fprintln(out, "This novel has no scenes.")
		return
	case playback.KindEnd:
		fmt.Fprintf(out, "\n%s\n[100%%] r restart, b back, q quit\n", view.EndMessage)
		return
	}

	fmt.Fprintf(out, "\n-- Scene %d/%d", view.Number, view.Total)
	if view.Name != "" {
		fmt.Fprintf(out, ": %s", view.Name)
	}
	fmt.Fprintf(out, " [%d%%] --\n", view.Progress)
	if view.Background != "" {
		fmt.Fprintf(out, "(background: %s)\n", view.Background)
	}
	for _, sprite := range view.Sprites {
		fmt.Fprintf(out, "(%s on stage)\n", spriteName(sprite))
	}
	if view.Text != "" {
		fmt.Fprintln(out, view.Text)
	}
	for _, choice := range view.Choices {
		fmt.Fprintf(out, "  %d) %s\n", choice.Index+1, choice.Text)
	}

	var nav []string
	if view.ShowPrev {
		nav = append(nav, "b back")
	}
	if view.ShowNext {
		nav = append(nav, "n next")
	}
	if len(view.Choices) == 0 && !view.ShowNext {
		nav = append(nav, "n finish")
	}
	if len(nav) > 0 {
		fmt.Fprintf(out, "[%s]\n", strings.Join(nav, ", "))
	}
}

func spriteName(sprite models.Sprite) string {
	if sprite.Name != "" {
		return sprite.Name
	}
	return sprite.ID
}
