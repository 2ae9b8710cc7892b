package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/reader"
)

func newDumpCmd(g *globals) *cobra.Command {
	var archive bool

	cmd := &cobra.Command{
		Use:   "dump <name|path>",
		Short: "Print the header, descriptors and values of an MMV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := g.open(args[0], archive)
			if err != nil {
				return err
			}
			defer r.Close()

			return dump(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "treat the argument as a snapshot archive")

	return cmd
}

func dump(out io.Writer, r *reader.Reader) error {
	h := r.Header()
	fmt.Fprintf(out, "version %d generation %d size %d\n", h.Version, r.Generation(), r.Size())
	fmt.Fprintf(out, "flags %s process %d cluster %d\n", h.Flags, h.Process, h.Cluster)
	if h.Flags.Has(format.FlagProcess) {
		ctx := context.Background()
		fmt.Fprintf(out, "writer %q alive %t\n", r.WriterName(ctx), r.WriterAlive(ctx))
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "\nTOC\tTYPE\tCOUNT\tOFFSET")
	for i, e := range r.Toc() {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", i, e.Type, e.Count, e.Offset)
	}

	if indoms := r.Indoms(); len(indoms) > 0 {
		fmt.Fprintln(tw, "\nINDOM\tINSTANCES\tSHORT")
		for _, in := range indoms {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", in.Serial, len(in.Instances), text(in.ShortText))
			for _, inst := range in.Instances {
				fmt.Fprintf(tw, "\t[%d] %s\t\n", inst.Internal, inst.External)
			}
		}
	}

	fmt.Fprintln(tw, "\nITEM\tMETRIC\tTYPE\tSEMANTICS\tINDOM\tSHORT")
	for _, m := range r.Metrics() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", m.Item, m.Name, m.Type, m.Semantics, m.Indom, text(m.ShortText))
	}

	fmt.Fprintln(tw, "\nVALUE\tINSTANCE\tDATA")
	for _, v := range r.Values() {
		s, err := r.Value(v)
		if err != nil {
			return errors.Wrapf(err, "read %s", v.Metric)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", v.Metric, v.Instance, formatSample(s))
	}

	if labels := r.Labels(); len(labels) > 0 {
		fmt.Fprintln(tw, "\nLABEL\tIDENTITY\tINSTANCE\tPAYLOAD")
		for _, l := range labels {
			fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", l.Type, l.Identity, l.Internal, l.Payload)
		}
	}

	return tw.Flush()
}

func formatSample(s reader.Sample) string {
	switch s.Type {
	case format.TypeString:
		return fmt.Sprintf("%q", s.Text)
	case format.TypeFloat, format.TypeDouble:
		return fmt.Sprintf("%g", s.Float64())
	case format.TypeI32, format.TypeI64, format.TypeElapsed:
		return fmt.Sprintf("%d", s.Int64())
	default:
		return fmt.Sprintf("%d", s.Uint64())
	}
}

func text(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}
