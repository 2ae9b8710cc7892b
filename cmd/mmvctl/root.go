package main

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/arloliu/mmv/config"
	"github.com/arloliu/mmv/reader"
	"github.com/arloliu/mmv/snapshot"
)

const (
	flagDebug  = "debug"
	flagTmpDir = "tmpdir"
)

// globals holds the state shared by all subcommands.
type globals struct {
	debug  bool
	tmpDir string
	logger *slog.Logger
}

func (g *globals) config() config.Config {
	return config.FromEnv().Merge(config.Config{TmpDir: g.tmpDir})
}

// open maps the MMV file named by arg, or loads it from a snapshot archive.
func (g *globals) open(arg string, archive bool) (*reader.Reader, error) {
	opts := []reader.Option{reader.WithLogger(g.logger)}
	if archive {
		f, err := os.Open(arg)
		if err != nil {
			return nil, errors.Wrap(err, "open archive")
		}
		defer f.Close()

		r, err := snapshot.Open(f, opts...)

		return r, errors.Wrapf(err, "read archive %s", arg)
	}

	path := g.config().Resolve(arg)
	r, err := reader.Open(path, opts...)

	return r, errors.Wrapf(err, "open %s", path)
}

func newRootCmd() *cobra.Command {
	g := &globals{logger: slog.Default()}

	cmd := &cobra.Command{
		Use:          "mmvctl",
		Short:        "Inspect and produce memory mapped metric files",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelInfo
			if g.debug {
				level = slog.LevelDebug
			}
			g.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	addGlobalFlags(cmd.PersistentFlags(), g)

	cmd.AddCommand(
		newDumpCmd(g),
		newServeCmd(g),
		newSnapshotCmd(g),
		newWriteCmd(g),
	)

	return cmd
}

func addGlobalFlags(fs *pflag.FlagSet, g *globals) {
	fs.BoolVar(&g.debug, flagDebug, false, "enable debug logging")
	fs.StringVar(&g.tmpDir, flagTmpDir, "", "base directory of MMV files (overrides $"+config.EnvTmpDir+")")
}
