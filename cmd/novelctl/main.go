// Command novelctl reads, converts and checks branching novels from the
// terminal, either from local files or from a running NovelBuilder server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Corphon/NovelBuilder/internal/gateway"
	"github.com/Corphon/NovelBuilder/internal/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options holds the persistent flags shared by every subcommand
type options struct {
	server  string
	token   string
	verbose bool
	timeout time.Duration
}

func (o *options) logger() *utils.Logger {
	if !o.verbose {
		return utils.NopLogger()
	}
	base, err := zap.NewDevelopment()
	if err != nil {
		return utils.NopLogger()
	}
	return utils.NewLogger(base)
}

func (o *options) client() *gateway.Client {
	return gateway.NewClient(o.server,
		gateway.WithToken(o.token),
		gateway.WithClientLogger(o.logger()),
	)
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "novelctl",
		Short:         "Play, convert and check branching visual novels",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("NOVEL_SERVER", "http://localhost:8080"), "NovelBuilder server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("NOVEL_TOKEN"), "author token for private novels")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "network timeout")

	root.AddCommand(
		newPlayCmd(opts),
		newFetchCmd(opts),
		newEditCmd(opts),
		newConvertCmd(),
		newCheckCmd(),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
