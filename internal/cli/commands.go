package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lazypower/freqdirs/internal/store"
	"github.com/spf13/cobra"
)

// --- query / list ---

var (
	queryPath    string
	queryWorkDir string
	queryScores  bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "List saved directories, best match first",
	Long: "List saved directories ranked by frecency. With --path only entries under that path are shown; " +
		"with --working-dir entries under it are listed first and printed relative to it.",
	Args: cobra.NoArgs,
	RunE: runQuery,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every saved directory, best match first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		queryPath = ""
		return runQuery(cmd, args)
	},
}

func runQuery(cmd *cobra.Command, args []string) error {
	var opts store.QueryOpts
	if queryPath != "" {
		p, err := canonicalPath(queryPath, false)
		if err != nil {
			return err
		}
		opts.Root = p
	}
	if queryWorkDir != "" {
		p, err := canonicalPath(queryWorkDir, false)
		if err != nil {
			return err
		}
		opts.WorkDir = p
	}

	var ranked []store.Ranked
	err := withSession(cmd, "query", func(ctx context.Context, s *store.Session) error {
		var err error
		ranked, err = s.Rank(ctx, opts)
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range ranked {
		p := displayPath(opts.WorkDir, r.Path)
		if queryScores {
			fmt.Fprintf(out, "%8.3f  %s\n", r.Score, p)
			continue
		}
		fmt.Fprintln(out, p)
	}
	return nil
}

// --- save / update / delete ---

var saveCmd = &cobra.Command{
	Use:   "save <path>",
	Short: "Record a visit to a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, "save", args[0], false, (*store.Session).Save)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "Record a visit, but only if the directory was saved before",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, "update", args[0], false, (*store.Session).Update)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Forget a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, "delete", args[0], true, (*store.Session).Delete)
	},
}

func mutate(cmd *cobra.Command, op, arg string, allowMissing bool, fn func(*store.Session, context.Context, string) error) error {
	p, err := canonicalPath(arg, allowMissing)
	if err != nil {
		return err
	}
	return withSession(cmd, op, func(ctx context.Context, s *store.Session) error {
		return fn(s, ctx, p)
	})
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	var st store.Stats
	var path string
	err := withSession(cmd, "stats", func(ctx context.Context, s *store.Session) error {
		var err error
		st, err = s.Stats(ctx)
		path = s.Path()
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "database:       %s\n", path)
	fmt.Fprintf(out, "schema version: %d\n", st.SchemaVersion)
	fmt.Fprintf(out, "paths:          %d (%d live, %d forgotten)\n", st.Paths, st.LivePaths, st.Paths-st.LivePaths)
	if st.Paths == 0 {
		fmt.Fprintln(out, "last visit:     never")
	} else {
		fmt.Fprintf(out, "last visit:     %s\n", humanize.Time(time.UnixMilli(st.LastSeen)))
	}
	return nil
}

func init() {
	queryCmd.Flags().StringVarP(&queryPath, "path", "p", "", "show only entries under this path")
	queryCmd.Flags().StringVarP(&queryWorkDir, "working-dir", "w", "", "rank entries under this directory first and print them relative to it")
	queryCmd.Flags().BoolVar(&queryScores, "scores", false, "print each entry's score")

	listCmd.Flags().StringVarP(&queryWorkDir, "working-dir", "w", "", "rank entries under this directory first and print them relative to it")
	listCmd.Flags().BoolVar(&queryScores, "scores", false, "print each entry's score")
}
