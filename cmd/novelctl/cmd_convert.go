package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd() *cobra.Command {
	var to string

	cmd := &cobra.Command{
		Use:   "convert <in> [out]",
		Short: "Convert a novel between JSON and YAML",
		Long: `Reads a novel in JSON or YAML (chosen by extension) and writes it in the
other format. Without [out] the result goes to stdout in the --to format.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			novel, err := readNovel(args[0])
			if err != nil {
				return err
			}

			out := ""
			format := to
			if len(args) == 2 {
				out = args[1]
				if format == "" {
					format = formatOf(out)
				}
			}
			if format == "" {
				format = opposite(formatOf(args[0]))
			}
			if format != formatJSON && format != formatYAML {
				return fmt.Errorf("unknown format %q", format)
			}
			return writeNovel(out, format, novel, stdoutWriter(cmd))
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "output format: json or yaml")
	return cmd
}

func opposite(format string) string {
	if format == formatYAML {
		return formatJSON
	}
	return formatYAML
}

func stdoutWriter(cmd *cobra.Command) func([]byte) error {
	return func(data []byte) error {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
}
