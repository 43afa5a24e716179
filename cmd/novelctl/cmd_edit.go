package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Corphon/NovelBuilder/internal/authoring"
	apperrors "github.com/Corphon/NovelBuilder/internal/errors"
	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/Corphon/NovelBuilder/internal/services"
	"github.com/spf13/cobra"
)

const editHelp = `scenes:  ls, scene N, add, rm-scene N, name TEXT, text TEXT, bg REF, commit
choices: choice, choice-text K TEXT, choice-target K N (0 ends), up K, down K, rm-choice K, targets
novel:   title TEXT, save, publish, yes / no (answer a pending delete), q`

// fileGateway lets the editor work offline: save and publish write the local file.
type fileGateway struct {
	path string
}

var _ services.NovelGateway = (*fileGateway)(nil)

func (g *fileGateway) GetNovel(ctx context.Context, id int64) (*models.Novel, error) {
	return readNovel(g.path)
}

func (g *fileGateway) SaveNovel(ctx context.Context, id int64, payload models.NovelPayload) error {
	novel, err := readNovel(g.path)
	if err != nil {
		return apperrors.NewUnavailableError("could not read "+g.path, err)
	}
	novel.Title = payload.Title
	novel.Description = payload.Description
	novel.IsPublished = payload.IsPublished
	novel.Scenes = models.CloneScenes(payload.Scenes)
	return g.write(novel)
}

func (g *fileGateway) PublishNovel(ctx context.Context, id int64) error {
	novel, err := readNovel(g.path)
	if err != nil {
		return apperrors.NewUnavailableError("could not read "+g.path, err)
	}
	if len(novel.Scenes) == 0 {
		return apperrors.NewValidationError("add at least one scene before publishing", nil)
	}
	novel.IsPublished = true
	return g.write(novel)
}

func (g *fileGateway) write(novel *models.Novel) error {
	err := writeNovel(g.path, formatOf(g.path), novel, nil)
	if err != nil {
		return apperrors.NewUnavailableError("could not write "+g.path, err)
	}
	return nil
}

func newEditCmd(opts *options) *cobra.Command {
	var novelID int64

	cmd := &cobra.Command{
		Use:   "edit [file]",
		Short: "Edit a novel line by line",
		Long: `Opens a novel for editing, either your draft on the server (--id, needs
--token) or a local JSON/YAML file that save writes back to.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var gw services.NovelGateway
			switch {
			case len(args) == 1:
				gw = &fileGateway{path: args[0]}
			case novelID > 0:
				gw = opts.client()
			default:
				return fmt.Errorf("give a file or --id")
			}

			ctx := cmd.Context()
			editor, notice, err := services.OpenEditor(ctx, gw, novelID, opts.logger())
			out := cmd.OutOrStdout()
			printNotice(out, notice)
			if err != nil {
				return err
			}
			return editLoop(ctx, cmd.InOrStdin(), out, editor)
		},
	}
	cmd.Flags().Int64Var(&novelID, "id", 0, "edit your draft on the server")
	return cmd
}

func printNotice(out io.Writer, notice authoring.Notice) {
	if notice.Message != "" {
		fmt.Fprintf(out, "[%s] %s\n", notice.Level, notice.Message)
	}
}

// editLoop runs editor commands until q or end of input. Numbers are 1-based.
func editLoop(ctx context.Context, in io.Reader, out io.Writer, editor *services.Editor) error {
	s := editor.Session()
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "edit> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		verb, rest, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		rest = strings.TrimSpace(rest)

		switch verb {
		case "":
		case "q", "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, editHelp)
		case "ls":
			listScenes(out, s)
		case "show":
			showWorking(out, s)
		case "scene":
			if n, ok := ordinal(out, rest); ok && !s.SelectScene(n-1) {
				fmt.Fprintln(out, "no such scene")
			}
		case "add":
			fmt.Fprintf(out, "scene %d added\n", s.AddScene()+1)
		case "rm-scene":
			if n, ok := ordinal(out, rest); ok {
				ask(out, s.RequestDeleteScene(n-1))
			}
		case "name":
			s.UpdateSceneName(rest)
		case "text":
			s.UpdateSceneText(rest)
		case "bg":
			s.UpdateSceneBackground(rest)
		case "title":
			s.SetTitle(rest)
		case "commit":
			notice, _ := s.SaveCurrentScene()
			printNotice(out, notice)
		case "choice":
			if k, ok := s.AddChoice(); ok {
				fmt.Fprintf(out, "choice %d added\n", k+1)
			} else {
				fmt.Fprintln(out, "select or create a scene first")
			}
		case "choice-text":
			k, text, _ := strings.Cut(rest, " ")
			if n, ok := ordinal(out, k); ok {
				s.UpdateChoiceText(n-1, strings.TrimSpace(text))
			}
		case "choice-target":
			k, target, _ := strings.Cut(rest, " ")
			n, ok := ordinal(out, k)
			t, err := strconv.Atoi(strings.TrimSpace(target))
			if ok && err == nil {
				s.UpdateChoiceNextScene(n-1, t)
			} else if ok {
				fmt.Fprintln(out, "target must be a scene number, or 0 for the end")
			}
		case "up":
			if n, ok := ordinal(out, rest); ok {
				s.MoveChoiceUp(n - 1)
			}
		case "down":
			if n, ok := ordinal(out, rest); ok {
				s.MoveChoiceDown(n - 1)
			}
		case "rm-choice":
			if n, ok := ordinal(out, rest); ok {
				ask(out, s.RequestDeleteChoice(n-1))
			}
		case "targets":
			for _, opt := range s.TargetOptions() {
				fmt.Fprintf(out, "  %d  %s\n", opt.Ordinal, opt.Label)
			}
		case "yes", "y":
			if !s.Confirm(s.Pending()) {
				fmt.Fprintln(out, "nothing to confirm")
			}
		case "no", "n":
			s.Cancel(s.Pending())
		case "save":
			notice, _ := editor.Save(ctx)
			printNotice(out, notice)
		case "publish":
			notice, _ := editor.Publish(ctx)
			printNotice(out, notice)
		default:
			fmt.Fprintln(out, editHelp)
		}
	}
}

func ordinal(out io.Writer, arg string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		fmt.Fprintln(out, "expected a number starting at 1")
		return 0, false
	}
	return n, true
}

func ask(out io.Writer, action *authoring.PendingAction) {
	if action == nil {
		fmt.Fprintln(out, "nothing to delete there")
		return
	}
	fmt.Fprintf(out, "%s (yes/no)\n", action.Prompt)
}

func listScenes(out io.Writer, s *authoring.Session) {
	if s.SceneCount() == 0 {
		fmt.Fprintln(out, "no scenes yet; use add")
		return
	}
	for _, item := range s.SceneList() {
		marker := " "
		if item.Active {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %d. %s  %s\n", marker, item.Index+1, item.Name, item.Preview)
	}
}

func showWorking(out io.Writer, s *authoring.Session) {
	if s.Current() == authoring.NoScene {
		fmt.Fprintln(out, "no scene selected")
		return
	}
	w := s.Working()
	fmt.Fprintf(out, "scene %d: %s\n", s.Current()+1, w.Name)
	if w.Background != "" {
		fmt.Fprintf(out, "background: %s\n", w.Background)
	}
	fmt.Fprintln(out, w.Text)
	for k, c := range w.Choices {
		target := "end"
		if c.NextScene != models.EndOfStory {
			target = "scene " + strconv.Itoa(c.NextScene)
		}
		fmt.Fprintf(out, "  %d) %s -> %s\n", k+1, c.Text, target)
	}
}
