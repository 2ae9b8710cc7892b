package registry

import (
	"fmt"
	"os"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/options"
	"github.com/arloliu/mmv/section"
)

// Option configures a Registry.
type Option = options.Option[*Registry]

// TextOption attaches optional short and help text to a metric or indom.
type TextOption = options.Option[*texts]

type texts struct {
	short *string
	help  *string
}

// WithCluster sets the PMID cluster id (0-4095).
func WithCluster(cluster uint32) Option {
	return options.New(func(r *Registry) error {
		if cluster > section.MaxCluster {
			return fmt.Errorf("%w: %d", errs.ErrInvalidCluster, cluster)
		}
		r.cluster = cluster

		return nil
	})
}

// WithFlags sets the header flags.
func WithFlags(flags format.Flags) Option {
	return options.New(func(r *Registry) error {
		if !flags.Valid() {
			return fmt.Errorf("%w: flags %#x", errs.ErrInvalidHeader, uint32(flags))
		}
		r.flags = flags

		return nil
	})
}

// WithProcess overrides the pid recorded in the header. It defaults to the
// current process.
func WithProcess(pid int32) Option {
	return options.NoError(func(r *Registry) {
		r.process = pid
	})
}

// WithVersion pins the format version instead of choosing the smallest one
// that can represent the registry.
func WithVersion(version uint32) Option {
	return options.New(func(r *Registry) error {
		if version < section.MinVersion || version > section.MaxVersion {
			return fmt.Errorf("%w: %d", errs.ErrInvalidVersion, version)
		}
		r.version = version

		return nil
	})
}

// WithLittleEndian encodes the file little-endian. This is the default.
func WithLittleEndian() Option {
	return options.NoError(func(r *Registry) {
		r.engine = endian.GetLittleEndianEngine()
	})
}

// WithBigEndian encodes the file big-endian.
func WithBigEndian() Option {
	return options.NoError(func(r *Registry) {
		r.engine = endian.GetBigEndianEngine()
	})
}

// WithShortText sets the one line description. An empty string is stored
// and read back as present-but-empty, distinct from no text at all.
func WithShortText(s string) TextOption {
	return options.New(func(t *texts) error {
		if len(s) > section.StringMax {
			return fmt.Errorf("%w: short text of %d bytes", errs.ErrTextTooLong, len(s))
		}
		t.short = &s

		return nil
	})
}

// WithHelpText sets the long description.
func WithHelpText(s string) TextOption {
	return options.New(func(t *texts) error {
		if len(s) > section.StringMax {
			return fmt.Errorf("%w: help text of %d bytes", errs.ErrTextTooLong, len(s))
		}
		t.help = &s

		return nil
	})
}

func defaultProcess() int32 {
	return int32(os.Getpid()) //nolint:gosec
}
