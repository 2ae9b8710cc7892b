package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
)

const sample = `
name: myapp
cluster: 42
flags: [process]
tmpdir: /tmp/pcp
interval: 2s
indoms:
  - serial: 1
    short: request queues
    instances:
      - {id: 0, name: fast}
      - {id: 1, name: slow}
metrics:
  - name: requests
    type: u64
    semantics: counter
    units: {dim_count: 1}
    indom: 1
    help: ""
  - name: uptime
    type: elapsed
    semantics: counter
    units: {dim_time: 1, scale_time: 1}
labels:
  - {type: context, name: env, value: prod}
  - {type: instances, identity: 1, instance: 1, name: tags, value: {tier: 2}}
`

func TestParseAndBuild(t *testing.T) {
	d, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Equal(t, "myapp", d.Name)
	require.Equal(t, "/tmp/pcp", d.Config.TmpDir)
	require.Equal(t, 2*time.Second, d.Interval)
	require.Len(t, d.Metrics, 2)
	require.NotNil(t, d.Metrics[0].Help)
	require.Empty(t, *d.Metrics[0].Help)
	require.Nil(t, d.Metrics[0].Short)

	reg, err := d.Build()
	require.NoError(t, err)
	require.Equal(t, uint32(42), reg.Cluster())
	require.True(t, reg.Flags().Has(format.FlagProcess))

	m, ok := reg.Lookup("uptime")
	require.True(t, ok)
	require.Equal(t, format.TypeElapsed, m.Type)
	require.Equal(t, section.Units{DimTime: 1, ScaleTime: section.TimeUSec}, m.Units)

	l, err := reg.Layout()
	require.NoError(t, err)
	require.Equal(t, uint32(section.Version3), l.Version)
	require.Len(t, l.Labels, 2)
	require.Equal(t, `{"tags":{"tier":2}}`, l.Labels[1].Payload)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("name: x\nbogus: 1\n"))
	require.Error(t, err)

	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{"bad type", "name: x\nmetrics:\n  - {name: m, type: nope, semantics: instant}\n", nil},
		{"bad flag", "name: x\nflags: [loud]\nmetrics:\n  - {name: m, type: u32, semantics: instant}\n", nil},
		{"duplicate", "name: x\nmetrics:\n  - {name: m, type: u32, semantics: instant}\n  - {name: m, type: u32, semantics: instant}\n", errs.ErrDuplicateMetricName},
		{"unknown indom", "name: x\nmetrics:\n  - {name: m, type: u32, semantics: instant, indom: 3}\n", errs.ErrUnknownIndom},
		{"bad label", "name: x\nmetrics:\n  - {name: m, type: u32, semantics: instant}\nlabels:\n  - {type: galaxy, name: a, value: 1}\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = d.Build()
			require.Error(t, err)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	d, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "myapp", d.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
