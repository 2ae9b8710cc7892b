package registry

import (
	"testing"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
	"github.com/stretchr/testify/require"
)

func buildSample(t *testing.T, opts ...Option) *Registry {
	t.Helper()

	r, err := New("sample", opts...)
	require.NoError(t, err)

	require.NoError(t, r.AddIndom(1, WithShortText("disks"), WithHelpText("")))
	require.NoError(t, r.AddInstance(1, 0, "sda"))
	require.NoError(t, r.AddInstance(1, 1, "sdb"))

	_, err = r.AddMetric(counter("simple.counter"), WithShortText("foo"), WithHelpText("bar"))
	require.NoError(t, err)
	_, err = r.AddMetric(Metric{Name: "disk.bytes", Type: format.TypeU64, Semantics: format.SemCounter,
		Units: section.Units{DimSpace: 1, ScaleSpace: section.SpaceKByte}, Indom: 1})
	require.NoError(t, err)
	_, err = r.AddMetric(Metric{Name: "status", Type: format.TypeString, Semantics: format.SemDiscrete})
	require.NoError(t, err)

	return r
}

func TestLayout_Sizing(t *testing.T) {
	r := buildSample(t)

	l, err := r.Layout()
	require.NoError(t, err)
	require.Equal(t, uint32(section.Version2), l.Version)

	// indoms, instances, metrics, values, strings
	require.Len(t, l.Toc, 5)
	require.Len(t, l.Indoms, 1)
	require.Len(t, l.Instances, 2)
	require.Len(t, l.Metrics, 3)
	require.Len(t, l.Values, 4) // 1 + 2 instances + 1

	// strings: indom short+help, 2 instance names, 3 metric names,
	// counter short+help, one string value
	require.Len(t, l.Strings, 10)

	expected := uint64(section.HeaderSize + 5*section.TocEntrySize +
		1*section.IndomSize + 2*section.InstanceV2Size + 3*section.MetricV2Size +
		4*section.ValueSize + 10*section.StringSize)
	require.Equal(t, expected, l.Size)

	prev := uint64(0)
	for _, e := range l.Toc {
		require.Greater(t, e.Offset, prev)
		require.Zero(t, e.Offset%8)
		require.NoError(t, e.Validate(l.Version, l.Size))
		prev = e.Offset
	}
}

func TestLayout_References(t *testing.T) {
	r := buildSample(t)
	l, err := r.Layout()
	require.NoError(t, err)

	require.Equal(t, l.InstancesOffset, l.Indoms[0].Offset)
	require.NotZero(t, l.Indoms[0].ShortText)
	require.NotZero(t, l.Indoms[0].HelpText) // empty but present

	for _, inst := range l.Instances {
		require.Equal(t, l.IndomsOffset, inst.Indom)
		require.GreaterOrEqual(t, inst.ExternalOffset, l.StringsOffset)
	}

	// status has no texts at all
	require.Zero(t, l.Metrics[2].ShortText)
	require.Zero(t, l.Metrics[2].HelpText)

	slots := l.Slots
	require.Equal(t, "simple.counter", slots[0].Metric)
	require.True(t, slots[0].Singular)
	require.Equal(t, "sda", slots[1].Instance)
	require.Equal(t, "sdb", slots[2].Instance)
	require.Equal(t, int32(1), slots[2].Internal)
	require.Equal(t, format.TypeString, slots[3].Type)
	require.NotZero(t, slots[3].StringOffset)
	require.Equal(t, int64(slots[3].StringOffset), l.Values[3].Extra) //nolint:gosec

	require.Equal(t, l.MetricsOffset+section.MetricV2Size, l.Values[1].Metric)
	require.Equal(t, l.InstancesOffset+section.InstanceV2Size, l.Values[2].Instance)
	require.Zero(t, l.Values[0].Instance)
}

func TestLayout_Encode(t *testing.T) {
	for name, opt := range map[string]Option{"little": WithLittleEndian(), "big": WithBigEndian()} {
		t.Run(name, func(t *testing.T) {
			r := buildSample(t, opt, WithCluster(7))
			l, err := r.Layout()
			require.NoError(t, err)

			data := make([]byte, l.Size)
			require.NoError(t, l.Encode(data, 11, 11))

			h, engine, err := section.ParseHeader(data)
			require.NoError(t, err)
			require.Equal(t, r.Engine(), engine)
			require.Equal(t, uint64(11), h.G1)
			require.True(t, h.Stable())
			require.Equal(t, uint32(7), h.Cluster)
			require.Equal(t, uint32(len(l.Toc)), h.TocCount) //nolint:gosec

			m, err := section.ParseMetricEntry(data[l.MetricsOffset:], l.Version, engine)
			require.NoError(t, err)
			name, err := section.ReadStringAt(data, m.NameOffset)
			require.NoError(t, err)
			require.Equal(t, "simple.counter", name)
			short, err := section.ReadStringAt(data, m.ShortText)
			require.NoError(t, err)
			require.Equal(t, "foo", short)

			require.Error(t, l.Encode(make([]byte, l.Size-1), 1, 1))
		})
	}
}

func TestLayout_Version1(t *testing.T) {
	r := buildSample(t, WithVersion(section.Version1))
	l, err := r.Layout()
	require.NoError(t, err)

	require.Equal(t, format.TocInstances, l.Toc[1].Type)
	require.Equal(t, format.TocMetrics, l.Toc[2].Type)
	require.Equal(t, "simple.counter", l.Metrics[0].Name)
	require.Zero(t, l.Metrics[0].NameOffset)
	require.Equal(t, "sda", l.Instances[0].External)

	data := make([]byte, l.Size)
	require.NoError(t, l.Encode(data, 1, 1))
	m, err := section.ParseMetricEntry(data[l.MetricsOffset:], section.Version1, endian.GetLittleEndianEngine())
	require.NoError(t, err)
	require.Equal(t, "simple.counter", m.Name)
}

func TestLayout_ExtendKeepsSlotIndices(t *testing.T) {
	r := buildSample(t)
	before, err := r.Layout()
	require.NoError(t, err)

	added, err := r.Extend(1, 2, "sdc")
	require.NoError(t, err)
	require.Equal(t, []int{4}, added)

	after, err := r.Layout()
	require.NoError(t, err)
	require.Len(t, after.Slots, 5)
	require.Greater(t, after.Size, before.Size)

	for i, s := range before.Slots {
		require.Equal(t, s.Metric, after.Slots[i].Metric)
		require.Equal(t, s.Instance, after.Slots[i].Instance)
	}
	require.Equal(t, "disk.bytes", after.Slots[4].Metric)
	require.Equal(t, "sdc", after.Slots[4].Instance)
	require.Equal(t, uint32(3), after.Indoms[0].Count)
}
