package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type target struct {
	retries int
	path    string
}

func withRetries(n int) Option[*target] {
	return New(func(t *target) error {
		if n < 1 {
			return errors.New("retries must be positive")
		}
		t.retries = n

		return nil
	})
}

func withPath(p string) Option[*target] {
	return NoError(func(t *target) { t.path = p })
}

func TestApply(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		tg := &target{}
		require.NoError(t, Apply(tg, withRetries(3), withPath("/tmp/a"), withPath("/tmp/b")))
		require.Equal(t, 3, tg.retries)
		require.Equal(t, "/tmp/b", tg.path)
	})

	t.Run("stops on error", func(t *testing.T) {
		tg := &target{}
		err := Apply(tg, withRetries(0), withPath("/tmp/a"))
		require.Error(t, err)
		require.Empty(t, tg.path)
	})

	t.Run("no options", func(t *testing.T) {
		require.NoError(t, Apply(&target{}))
	})
}
