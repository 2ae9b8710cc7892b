package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/arloliu/mmv/compress"
	"github.com/arloliu/mmv/snapshot"
)

func newSnapshotCmd(g *globals) *cobra.Command {
	var (
		output    string
		codecName string
	)

	cmd := &cobra.Command{
		Use:   "snapshot <name|path>",
		Short: "Write a consistent compressed copy of an MMV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec, err := compress.ForName(codecName)
			if err != nil {
				return err
			}

			r, err := g.open(args[0], false)
			if err != nil {
				return err
			}
			defer r.Close()

			img, err := snapshot.Capture(r, nil)
			if err != nil {
				return errors.Wrap(err, "capture")
			}
			defer func() { _ = img.Release() }()

			if output == "" || output == "-" {
				_, err = snapshot.Write(cmd.OutOrStdout(), img, codec)

				return errors.Wrap(err, "write archive")
			}
			if err := snapshot.Save(output, img, codec); err != nil {
				_ = os.Remove(output)

				return errors.Wrapf(err, "save %s", output)
			}
			g.logger.Info("snapshot written", "path", output, "generation", img.Generation, "size", len(img.Data), "codec", codec.Type())

			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "archive path, - for stdout")
	cmd.Flags().StringVar(&codecName, "codec", "zstd", "compression codec: none, s2, lz4 or zstd")

	return cmd
}
