package registry

import (
	"strings"
	"testing"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
	"github.com/stretchr/testify/require"
)

func counter(name string) Metric {
	return Metric{
		Name:      name,
		Type:      format.TypeU64,
		Semantics: format.SemCounter,
		Units:     section.Units{DimCount: 1},
	}
}

func TestNew(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := New("app")
		require.NoError(t, err)
		require.Equal(t, "app", r.Name())
		require.Equal(t, endian.GetLittleEndianEngine(), r.Engine())
		require.NotZero(t, r.Process())
		require.Equal(t, format.Flags(0), r.Flags())
	})

	t.Run("options", func(t *testing.T) {
		r, err := New("app", WithCluster(12), WithFlags(format.FlagProcess), WithBigEndian(), WithProcess(99))
		require.NoError(t, err)
		require.Equal(t, uint32(12), r.Cluster())
		require.Equal(t, format.FlagProcess, r.Flags())
		require.Equal(t, endian.GetBigEndianEngine(), r.Engine())
		require.Equal(t, int32(99), r.Process())
	})

	t.Run("invalid", func(t *testing.T) {
		for _, name := range []string{"", "a/b", ".", ".."} {
			_, err := New(name)
			require.ErrorIs(t, err, errs.ErrInvalidRegistryName, name)
		}
		_, err := New("app", WithCluster(section.MaxCluster+1))
		require.ErrorIs(t, err, errs.ErrInvalidCluster)
		_, err = New("app", WithVersion(4))
		require.ErrorIs(t, err, errs.ErrInvalidVersion)
		_, err = New("app", WithFlags(0x100))
		require.ErrorIs(t, err, errs.ErrInvalidHeader)
	})
}

func TestAddMetric_Validation(t *testing.T) {
	tests := []struct {
		name   string
		metric Metric
		err    error
	}{
		{"empty name", Metric{Type: format.TypeU32, Semantics: format.SemInstant}, errs.ErrInvalidMetricName},
		{"space in name", Metric{Name: "a b", Type: format.TypeU32, Semantics: format.SemInstant}, errs.ErrInvalidMetricName},
		{"bad type", Metric{Name: "m", Type: 7, Semantics: format.SemInstant}, errs.ErrInvalidValueType},
		{"bad semantics", Metric{Name: "m", Type: format.TypeU32, Semantics: 2}, errs.ErrInvalidSemantics},
		{"string counter", Metric{Name: "m", Type: format.TypeString, Semantics: format.SemCounter}, errs.ErrInvalidTypeSemantics},
		{"instant elapsed", Metric{Name: "m", Type: format.TypeElapsed, Semantics: format.SemInstant}, errs.ErrInvalidTypeSemantics},
		{"bad units", Metric{Name: "m", Type: format.TypeU32, Semantics: format.SemInstant, Units: section.Units{ScaleTime: 3}}, errs.ErrInvalidUnits},
		{"unknown indom", Metric{Name: "m", Type: format.TypeU32, Semantics: format.SemInstant, Indom: 5}, errs.ErrUnknownIndom},
		{"item out of range", Metric{Name: "m", Item: section.MaxItem + 1, Type: format.TypeU32, Semantics: format.SemInstant}, errs.ErrInvalidMetricItem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New("app")
			require.NoError(t, err)

			_, err = r.AddMetric(tt.metric)
			require.ErrorIs(t, err, tt.err)
			require.Zero(t, r.MetricCount())
		})
	}
}

func TestAddMetric_Duplicates(t *testing.T) {
	r, err := New("app")
	require.NoError(t, err)

	item, err := r.AddMetric(counter("simple.counter"))
	require.NoError(t, err)
	require.Equal(t, uint32(1), item)

	_, err = r.AddMetric(counter("simple.counter"))
	require.ErrorIs(t, err, errs.ErrDuplicateMetricName)

	m := counter("other")
	m.Item = 1
	_, err = r.AddMetric(m)
	require.ErrorIs(t, err, errs.ErrDuplicateMetricItem)

	m.Item = 7
	item, err = r.AddMetric(m)
	require.NoError(t, err)
	require.Equal(t, uint32(7), item)

	item, err = r.AddMetric(counter("third"))
	require.NoError(t, err)
	require.Equal(t, uint32(2), item)

	got, ok := r.Lookup("other")
	require.True(t, ok)
	require.Equal(t, uint32(7), got.Item)
}

func TestAddMetric_TextTooLong(t *testing.T) {
	r, err := New("app")
	require.NoError(t, err)

	_, err = r.AddMetric(counter("m"), WithHelpText(strings.Repeat("x", section.StringSize)))
	require.ErrorIs(t, err, errs.ErrTextTooLong)

	// the failed add released its item
	item, err := r.AddMetric(counter("m"))
	require.NoError(t, err)
	require.Equal(t, uint32(1), item)
}

func TestIndoms(t *testing.T) {
	r, err := New("app")
	require.NoError(t, err)

	require.NoError(t, r.AddIndom(1, WithShortText("cpus")))
	require.ErrorIs(t, r.AddIndom(1), errs.ErrDuplicateIndom)
	require.ErrorIs(t, r.AddIndom(section.NoIndom), errs.ErrDuplicateIndom)

	require.NoError(t, r.AddInstance(1, 0, "cpu0"))
	require.NoError(t, r.AddInstance(1, 1, "cpu1"))
	require.ErrorIs(t, r.AddInstance(1, 1, "cpu2"), errs.ErrDuplicateInstance)
	require.ErrorIs(t, r.AddInstance(1, 2, "cpu0"), errs.ErrDuplicateInstance)
	require.ErrorIs(t, r.AddInstance(2, 0, "x"), errs.ErrUnknownIndom)
	require.ErrorIs(t, r.AddInstance(1, 3, ""), errs.ErrInvalidInstanceName)
}

func TestVersion1NameLimit(t *testing.T) {
	r, err := New("app", WithVersion(section.Version1))
	require.NoError(t, err)

	_, err = r.AddMetric(counter(strings.Repeat("n", section.NameMax)))
	require.ErrorIs(t, err, errs.ErrInvalidMetricName)

	_, err = r.AddMetric(counter(strings.Repeat("n", section.NameMax-1)))
	require.NoError(t, err)

	require.NoError(t, r.AddIndom(1))
	require.ErrorIs(t, r.AddInstance(1, 0, strings.Repeat("i", section.NameMax)), errs.ErrInvalidInstanceName)
}

func TestLabels(t *testing.T) {
	r, err := New("app", WithCluster(3))
	require.NoError(t, err)
	require.NoError(t, r.AddIndom(1))
	require.NoError(t, r.AddInstance(1, 4, "disk0"))
	_, err = r.AddMetric(counter("m"))
	require.NoError(t, err)

	require.NoError(t, r.AddLabel(Label{Type: format.LabelContext, Name: "env", Value: "prod"}))
	require.NoError(t, r.AddLabel(Label{Type: format.LabelItem, Identity: 1, Name: "units", Value: "ops"}))
	require.NoError(t, r.AddLabel(Label{Type: format.LabelInstances, Identity: 1, Internal: 4, Name: "device", Value: "sda"}))
	require.NoError(t, r.AddLabel(Label{Type: format.LabelCluster | format.LabelOptional, Name: "tier", Value: 2}))

	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelItem, Identity: 9, Name: "x", Value: 1}), errs.ErrInvalidLabel)
	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelIndom, Identity: 9, Name: "x", Value: 1}), errs.ErrUnknownIndom)
	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelInstances, Identity: 1, Internal: 5, Name: "x", Value: 1}), errs.ErrInvalidLabel)
	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelItem | format.LabelIndom, Name: "x"}), errs.ErrInvalidLabel)
	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelContext, Name: "big", Value: strings.Repeat("v", section.LabelMax)}), errs.ErrInvalidLabel)

	payload, err := Label{Name: "env", Value: "prod"}.Payload()
	require.NoError(t, err)
	require.Equal(t, `{"env":"prod"}`, payload)

	l, err := r.Layout()
	require.NoError(t, err)
	require.Equal(t, uint32(section.Version3), l.Version)
	require.Len(t, l.Labels, 4)
	require.Equal(t, uint32(3), l.Labels[3].Identity)
	require.Equal(t, int32(4), l.Labels[2].Internal)
}

func TestLabelsRequireVersion3(t *testing.T) {
	r, err := New("app", WithVersion(section.Version2))
	require.NoError(t, err)
	_, err = r.AddMetric(counter("m"))
	require.NoError(t, err)
	require.NoError(t, r.AddLabel(Label{Type: format.LabelContext, Name: "env", Value: "dev"}))

	require.ErrorIs(t, r.Seal(), errs.ErrInvalidVersion)
}

func TestSeal(t *testing.T) {
	r, err := New("app")
	require.NoError(t, err)
	require.ErrorIs(t, r.Seal(), errs.ErrNoMetricsAdded)

	require.NoError(t, r.AddIndom(1))
	_, err = r.AddMetric(Metric{Name: "per", Type: format.TypeU32, Semantics: format.SemInstant, Indom: 1})
	require.NoError(t, err)
	require.ErrorIs(t, r.Seal(), errs.ErrEmptyIndom)

	require.NoError(t, r.AddInstance(1, 0, "a"))
	require.NoError(t, r.Seal())
	require.True(t, r.Sealed())
	require.ErrorIs(t, r.Seal(), errs.ErrRegistryAlreadyStarted)

	_, err = r.AddMetric(counter("late"))
	require.ErrorIs(t, err, errs.ErrRegistryAlreadyStarted)
	require.ErrorIs(t, r.AddIndom(2), errs.ErrRegistryAlreadyStarted)
	require.ErrorIs(t, r.AddInstance(1, 1, "b"), errs.ErrRegistryAlreadyStarted)
	require.ErrorIs(t, r.AddLabel(Label{Type: format.LabelContext, Name: "x", Value: 1}), errs.ErrRegistryAlreadyStarted)
}
