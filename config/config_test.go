package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigPaths(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		var c Config
		require.Equal(t, "/var/tmp/mmv", c.Dir())
		require.Equal(t, "/var/tmp/mmv/app", c.Path("app"))
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv(EnvTmpDir, "/tmp/pcp")
		c := FromEnv()
		require.Equal(t, "/tmp/pcp/mmv/app", c.Path("app"))
	})

	t.Run("resolve", func(t *testing.T) {
		c := Config{TmpDir: "/x"}
		require.Equal(t, "/x/mmv/app", c.Resolve("app"))
		require.Equal(t, "./app", c.Resolve("./app"))
		require.Equal(t, "/abs/app", c.Resolve("/abs/app"))
	})

	t.Run("merge", func(t *testing.T) {
		c := Config{TmpDir: "/a"}
		require.Equal(t, "/a", c.Merge(Config{}).TmpDir)
		require.Equal(t, "/b", c.Merge(Config{TmpDir: "/b"}).TmpDir)
	})

	t.Run("ensure dir", func(t *testing.T) {
		c := Config{TmpDir: t.TempDir()}
		require.NoError(t, c.EnsureDir())
		st, err := os.Stat(c.Dir())
		require.NoError(t, err)
		require.True(t, st.IsDir())
	})
}
