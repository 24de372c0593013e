package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"groot/internal/compare"
	"groot/internal/config"
	"groot/internal/diff"
	"groot/internal/errors"
	"groot/internal/hasher"
	"groot/internal/repo"
	"groot/internal/validation"
	"groot/internal/watch"
	"groot/internal/workspace"
	"groot/shared/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitCmd() *cobra.Command {
	var opts repo.InitOptions

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Initialize a new groot repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			created, err := repo.Init(dir, opts, logger.Logger)
			if err != nil {
				return fmt.Errorf("initializing repository: %w", err)
			}

			if created {
				fmt.Fprintln(out, "Initialized empty groot repository in", dir)
			} else {
				fmt.Fprintln(out, "groot is already initialized in", dir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Hash, "hash", "", "Digest algorithm (sha1, sha256, xxh3; default "+hasher.DefaultAlgorithm+"); fixed once created")
	cmd.Flags().BoolVar(&opts.Compress, "compress", false, "Store large objects zstd-compressed")
	return cmd
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>...",
		Short: "Store file contents and stage them for the next commit",
		Long:  `Stores the current content of each file and stages it. Directories are added recursively.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			staged, err := r.Add(args...)
			for _, entry := range staged {
				printStaged(entry)
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "%d file(s) added to the staging area\n", len(staged))
			return nil
		},
	}
}

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit [message]",
		Short: "Record the staging area as a new commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := message
			if len(args) == 1 {
				if msg != "" {
					return errors.ValidationError("give the message either as an argument or with -m, not both")
				}
				msg = args[0]
			}
			if err := validation.CommitMessage(msg); err != nil {
				return err
			}

			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			staged, err := r.Status()
			if err != nil {
				return err
			}

			d, err := r.Commit(msg)
			if err != nil {
				return err
			}

			printCommitted(d, msg, len(staged))
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message")
	return cmd
}

func newLogCmd() *cobra.Command {
	var oneline bool

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the commit history, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			count := 0
			for entry, err := range r.Log() {
				if err != nil {
					return err
				}
				printLogEntry(entry, oneline)
				count++
			}

			if count == 0 {
				fmt.Fprintln(out, "No commits yet")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&oneline, "oneline", false, "One line per commit")
	return cmd
}

func newDiffCmd() *cobra.Command {
	var (
		against string
		unified bool
	)

	cmd := &cobra.Command{
		Use:   "diff <commit>",
		Short: "Show what a commit changed",
		Long: `Compares every file of the commit with the same path in its parent commit,
or in the commit given with --against. Commit ids may be abbreviated, and
"head" names the latest commit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			target, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}

			var result *compare.CommitDiff
			if against != "" {
				base, err := r.ResolveRevision(against)
				if err != nil {
					return err
				}
				result, err = r.DiffAgainst(base, target)
				if err != nil {
					return err
				}
			} else {
				result, err = r.Diff(target)
				if err != nil {
					return err
				}
			}

			var engine *diff.Engine
			if unified {
				engine = diff.NewEngine(r.Config.Diff.Context)
			}
			printCommitDiff(result, engine)
			return nil
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "Compare with this commit instead of the parent")
	cmd.Flags().BoolVarP(&unified, "unified", "u", false, "Show hunks with context instead of whole files")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List the files in the staging area",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			entries, err := r.Status()
			if err != nil {
				return err
			}

			head, err := r.Head()
			if err != nil {
				return err
			}
			printStatus(head, entries)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check every stored object and the commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			defer r.Close()

			report, err := r.Verify()
			if err != nil {
				return err
			}

			printVerifyReport(report)
			if !report.OK() {
				return errors.New(errors.KindCorruptObject, fmt.Sprintf("%d problem(s) found", len(report.Problems)), nil)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or change repository settings",
	}

	getCmd := &cobra.Command{
		Use:   "get <section.key>",
		Short: "Print a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspace.FindRoot(".")
			if err != nil {
				return err
			}
			value, err := config.Get(configPath(root), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, value)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <section.key> <value>",
		Short: "Change a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspace.FindRoot(".")
			if err != nil {
				return err
			}
			if err := config.Set(configPath(root), args[0], args[1]); err != nil {
				return err
			}
			logger.Info("config updated", zap.String("key", args[0]), zap.String("value", args[1]))
			return nil
		},
	}

	cmd.AddCommand(getCmd, setCmd)
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <path>...",
		Short: "Stage files again every time they are saved",
		Long: `Watches the given files (directories are expanded) and stages each one
again whenever it is written. Stop with Ctrl-C; committing stays explicit.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := workspace.FindRoot(".")
			if err != nil {
				return err
			}

			files, err := workspace.New(root, logger.Named("workspace")).Expand(args)
			if err != nil {
				return err
			}

			w, err := watch.New(root, &repoStager{root: root}, files, logger.Named("watch"))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(out, "Watching %d file(s); press Ctrl-C to stop\n", len(files))
			return w.Run(ctx)
		},
	}
}

// repoStager opens the repository for each staging so the catalog is not
// held open between saves and other commands can run alongside watch.
type repoStager struct {
	root string
}

func (s *repoStager) AddFile(path string) (shared.Entry, error) {
	r, err := repo.Open(s.root, nil, logger.Logger)
	if err != nil {
		return shared.Entry{}, err
	}
	defer r.Close()

	entry, err := r.AddFile(path)
	if err != nil {
		return shared.Entry{}, err
	}
	printStaged(entry)
	return entry, nil
}
