// Package mmv implements memory mapped value files: a fixed binary layout in
// which a writer process publishes metric descriptors and live values that
// any number of reader processes can sample without locks or system calls.
//
// A file is described once, through a Registry, and then mapped by a Writer.
// Values are updated in place with atomic 64-bit stores. Structural changes
// such as a new instance are bracketed by the generation pair in the header,
// which lets a Reader detect and retry torn scans.
//
// # Core Features
//
//   - Format versions 1 to 3 with either byte order
//   - Lock-free value updates through typed handles
//   - Reader scans validated by the generation protocol with bounded retry
//   - Instance domains and JSON labels
//   - Compressed snapshot archives (None, Zstd, S2, LZ4)
//   - Prometheus and OpenTelemetry exporters
//
// # Basic Usage
//
// Publishing a counter:
//
//	reg, _ := mmv.NewRegistry("myapp")
//	reg.AddMetric(registry.Metric{
//	    Name:      "requests",
//	    Type:      format.TypeU64,
//	    Semantics: format.SemCounter,
//	})
//
//	w, _ := mmv.Start(reg)
//	defer w.Stop(true)
//
//	h, _ := w.Lookup("requests", "")
//	h.Inc(1)
//
// Reading it from another process:
//
//	r, _ := mmv.Open("myapp")
//	defer r.Close()
//
//	s, _ := r.ReadValue("requests", "")
//	fmt.Println(s.Uint64())
//
// # Package Structure
//
// This package wraps the registry, writer, reader and snapshot packages for
// the common cases. Use those packages directly for full control.
package mmv

import (
	"github.com/arloliu/mmv/config"
	"github.com/arloliu/mmv/internal/hash"
	"github.com/arloliu/mmv/reader"
	"github.com/arloliu/mmv/registry"
	"github.com/arloliu/mmv/snapshot"
	"github.com/arloliu/mmv/writer"
)

// NewRegistry creates an empty registry for the file called name.
//
// The registry defaults to little-endian byte order,
// cluster 0 and a format version chosen from the descriptors added later.
//
// Available options:
//   - registry.WithCluster(id)
//   - registry.WithFlags(format.FlagProcess|FlagNoPrefix|FlagSentinel)
//   - registry.WithVersion(1|2|3)
//   - registry.WithLittleEndian() / registry.WithBigEndian()
//   - registry.WithProcess(pid)
func NewRegistry(name string, opts ...registry.Option) (*registry.Registry, error) {
	return registry.New(name, opts...)
}

// Start seals reg and maps its file.
//
// The file lives in the MMV directory resolved from the environment
// ($PCP_TMP_DIR/mmv, or /var/tmp/mmv) unless writer.WithPath or
// writer.WithConfig says otherwise. The returned writer must be stopped.
//
// Example:
//
//	w, err := mmv.Start(reg, writer.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(true)
func Start(reg *registry.Registry, opts ...writer.Option) (*writer.Writer, error) {
	return writer.Start(reg, opts...)
}

// Open maps the file named by nameOrPath and scans it.
//
// A plain name is looked up in the MMV directory; anything containing a path
// separator is used as is. The scan retries while a writer update is in
// progress, up to reader.DefaultMaxRetries times unless overridden with
// reader.WithMaxRetries.
func Open(nameOrPath string, opts ...reader.Option) (*reader.Reader, error) {
	return reader.Open(Path(nameOrPath), opts...)
}

// Path resolves a registry name or a path the way Open does.
func Path(nameOrPath string) string {
	return config.FromEnv().Resolve(nameOrPath)
}

// Capture takes a consistent copy of the file behind r. Release the image
// once it has been written out.
func Capture(r *reader.Reader) (*snapshot.Image, error) {
	return snapshot.Capture(r, nil)
}

// MetricID returns the 64-bit hash used to index metric names.
//
// Readers and registries look names up through this hash; exporters may use
// it as a stable key for the same name across files.
func MetricID(name string) uint64 {
	return hash.ID(name)
}
