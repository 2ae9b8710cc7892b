package snapshot

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mmv/compress"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/pool"
	"github.com/arloliu/mmv/reader"
	"github.com/arloliu/mmv/registry"
	"github.com/arloliu/mmv/writer"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func liveReader(t *testing.T) (*writer.Writer, *reader.Reader) {
	t.Helper()

	reg, err := registry.New("snap")
	require.NoError(t, err)
	require.NoError(t, reg.AddIndom(1))
	require.NoError(t, reg.AddInstance(1, 0, "a"))
	require.NoError(t, reg.AddInstance(1, 1, "b"))
	_, err = reg.AddMetric(registry.Metric{Name: "hits", Type: format.TypeU64, Semantics: format.SemCounter, Indom: 1})
	require.NoError(t, err)
	_, err = reg.AddMetric(registry.Metric{Name: "state", Type: format.TypeString, Semantics: format.SemDiscrete},
		registry.WithHelpText("current state"))
	require.NoError(t, err)

	w, err := writer.Start(reg, writer.WithLogger(discard), writer.WithPath(filepath.Join(t.TempDir(), "snap")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop(true) })

	h, err := w.Lookup("hits", "b")
	require.NoError(t, err)
	require.NoError(t, h.Inc(7))
	h, err = w.Lookup("state", "")
	require.NoError(t, err)
	require.NoError(t, h.SetString("green"))

	r, err := reader.Open(w.Path(), reader.WithLogger(discard))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return w, r
}

func TestCaptureWriteOpen(t *testing.T) {
	w, r := liveReader(t)
	pins := pool.NewPinPool(nil)

	img, err := Capture(r, pins)
	require.NoError(t, err)
	require.Equal(t, w.Generation(), img.Generation)
	require.Len(t, img.Data, r.Size())
	require.Equal(t, 1, pins.Pinned())

	for _, ct := range []format.CompressionType{format.CompressionNone, format.CompressionZstd, format.CompressionS2, format.CompressionLZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := compress.GetCodec(ct)
			require.NoError(t, err)

			var buf bytes.Buffer
			n, err := Write(&buf, img, codec)
			require.NoError(t, err)
			require.Equal(t, int64(buf.Len()), n)

			snap, err := Open(bytes.NewReader(buf.Bytes()), reader.WithLogger(discard))
			require.NoError(t, err)
			require.Equal(t, img.Generation, snap.Generation())

			s, err := snap.ReadValue("hits", "b")
			require.NoError(t, err)
			require.Equal(t, uint64(7), s.Word)
			s, err = snap.ReadValue("state", "")
			require.NoError(t, err)
			require.Equal(t, "green", s.Text)

			m, ok := snap.Metric("state")
			require.True(t, ok)
			require.Equal(t, "current state", *m.HelpText)
		})
	}

	require.NoError(t, img.Release())
	require.Zero(t, pins.Pinned())
	require.NoError(t, img.Release())
}

func TestCaptureIsACopy(t *testing.T) {
	w, r := liveReader(t)

	img, err := Capture(r, nil)
	require.NoError(t, err)
	defer func() { _ = img.Release() }()

	h, err := w.Lookup("hits", "b")
	require.NoError(t, err)
	require.NoError(t, h.Inc(100))

	snap, err := reader.FromBytes(img.Data, reader.WithLogger(discard))
	require.NoError(t, err)
	s, err := snap.ReadValue("hits", "b")
	require.NoError(t, err)
	require.Equal(t, uint64(7), s.Word)
}

func TestSaveLoad(t *testing.T) {
	_, r := liveReader(t)
	img, err := Capture(r, nil)
	require.NoError(t, err)
	defer func() { _ = img.Release() }()

	codec, err := compress.ForName("s2")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "snap.mmvs")
	require.NoError(t, Save(path, img, codec))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, img.Data, loaded.Data)
	require.Equal(t, img.Generation, loaded.Generation)
	require.NoError(t, loaded.Release())
}

func TestDecodeErrors(t *testing.T) {
	_, r := liveReader(t)
	img, err := Capture(r, nil)
	require.NoError(t, err)
	defer func() { _ = img.Release() }()

	var buf bytes.Buffer
	_, err = Write(&buf, img, compress.NewNoOpCompressor())
	require.NoError(t, err)
	archive := buf.Bytes()

	corrupt := func(fn func(b []byte) []byte) error {
		b := fn(append([]byte(nil), archive...))
		_, err := Decode(b)

		return err
	}

	tests := []struct {
		name string
		fn   func(b []byte) []byte
		err  error
	}{
		{"short", func(b []byte) []byte { return b[:10] }, errs.ErrInvalidSnapshot},
		{"magic", func(b []byte) []byte {
			b[0] = 'X'
			return b
		}, errs.ErrInvalidSnapshot},
		{"version", func(b []byte) []byte {
			b[4] = 9
			return b
		}, errs.ErrInvalidSnapshot},
		{"codec", func(b []byte) []byte {
			b[6] = 77
			return b
		}, errs.ErrInvalidSnapshot},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-1] }, errs.ErrInvalidSnapshot},
		{"flipped byte", func(b []byte) []byte {
			b[HeaderSize+100] ^= 0xff
			return b
		}, errs.ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, corrupt(tt.fn), tt.err)
		})
	}
}
