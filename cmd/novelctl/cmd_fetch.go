package main

import (
	"context"
	"fmt"

	"github.com/Corphon/NovelBuilder/internal/models"
	"github.com/spf13/cobra"
)

func newFetchCmd(opts *options) *cobra.Command {
	var (
		novelID int64
		output  string
		format  string
		edit    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch --id N",
		Short: "Download a novel from the server",
		Long: `Downloads a published novel (or, with --edit and a token, your own draft)
and writes it as JSON or YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if novelID <= 0 {
				return fmt.Errorf("--id is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client := opts.client()
			var (
				novel *models.Novel
				err   error
			)
			if edit {
				novel, err = client.GetNovel(ctx, novelID)
			} else {
				novel, err = client.ViewNovel(ctx, novelID)
			}
			if err != nil {
				return err
			}

			if format == "" {
				format = formatJSON
				if output != "" {
					format = formatOf(output)
				}
			}
			return writeNovel(output, format, novel, stdoutWriter(cmd))
		},
	}
	cmd.Flags().Int64Var(&novelID, "id", 0, "novel id")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "json or yaml (default from --output extension)")
	cmd.Flags().BoolVar(&edit, "edit", false, "fetch the editable draft instead of the published view")
	return cmd
}
