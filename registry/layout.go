package registry

import (
	"fmt"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/section"
)

// Slot describes one value slot of the layout.
type Slot struct {
	Index     int
	Metric    string
	Item      uint32
	Instance  string // empty for singular metrics
	Internal  int32
	Singular  bool
	Type      format.ValueType
	Semantics format.Semantics
	// Offset is the file offset of the value record.
	Offset uint64
	// StringOffset is the string slot holding the value of a TypeString metric.
	StringOffset uint64
}

// Layout is the complete, file-relative arrangement of a sealed registry.
type Layout struct {
	Version uint32
	Engine  endian.EndianEngine
	Header  section.Header
	Toc     []section.TocEntry

	Indoms    []section.IndomEntry
	Instances []section.InstanceEntry
	Metrics   []section.MetricEntry
	Values    []section.ValueEntry
	Strings   []string
	Labels    []section.LabelEntry
	Slots     []Slot

	IndomsOffset    uint64
	InstancesOffset uint64
	MetricsOffset   uint64
	ValuesOffset    uint64
	StringsOffset   uint64
	LabelsOffset    uint64

	// Size is the exact size of the file in bytes.
	Size uint64
}

// stringTable collects strings during layout. References are stored as
// index+1 until the table's offset is known, so that zero keeps meaning
// "absent".
type stringTable struct {
	strs []string
}

func (t *stringTable) ref(s *string) uint64 {
	if s == nil {
		return 0
	}
	t.strs = append(t.strs, *s)

	return uint64(len(t.strs))
}

func (t *stringTable) add(s string) uint64 {
	return t.ref(&s)
}

func resolve(ref, base uint64) uint64 {
	if ref == 0 {
		return 0
	}

	return base + (ref-1)*section.StringSize
}

// Layout seals the registry if necessary and computes its file layout.
//
// The regions follow the header and TOC in this order: indoms, instances,
// metrics, values, strings, labels. Empty optional regions get no TOC entry.
func (r *Registry) Layout() (*Layout, error) {
	if !r.sealed {
		if err := r.Seal(); err != nil {
			return nil, err
		}
	}
	version, err := r.resolveVersion()
	if err != nil {
		return nil, err
	}

	l := &Layout{Version: version, Engine: r.engine}
	var st stringTable

	// instance positions: indom idx -> first instance index in the region
	base := make([]int, len(r.indoms))
	total := 0
	for i, d := range r.indoms {
		base[i] = total
		total += len(d.instances)
	}

	l.Indoms = make([]section.IndomEntry, len(r.indoms))
	l.Instances = make([]section.InstanceEntry, 0, total)
	for i, d := range r.indoms {
		l.Indoms[i] = section.IndomEntry{
			Serial:    d.serial,
			Count:     uint32(len(d.instances)), //nolint:gosec
			ShortText: st.ref(d.texts.short),
			HelpText:  st.ref(d.texts.help),
		}
		for _, inst := range d.instances {
			e := section.InstanceEntry{Internal: inst.internal}
			if version == section.Version1 {
				e.External = inst.external
			} else {
				e.ExternalOffset = st.add(inst.external)
			}
			l.Instances = append(l.Instances, e)
		}
	}

	l.Metrics = make([]section.MetricEntry, len(r.metrics))
	for i, m := range r.metrics {
		e := section.MetricEntry{
			Item:      m.Item,
			Type:      m.Type,
			Semantics: m.Semantics,
			Dimension: m.Units.Pack(),
			Indom:     m.Indom,
		}
		if version == section.Version1 {
			e.Name = m.Name
		} else {
			e.NameOffset = st.add(m.Name)
		}
		e.ShortText = st.ref(m.short)
		e.HelpText = st.ref(m.help)
		l.Metrics[i] = e
	}

	l.Values = make([]section.ValueEntry, len(r.slots))
	l.Slots = make([]Slot, len(r.slots))
	for i, k := range r.slots {
		m := r.metrics[k.metric]
		s := Slot{
			Index:     i,
			Metric:    m.Name,
			Item:      m.Item,
			Singular:  k.instance < 0,
			Type:      m.Type,
			Semantics: m.Semantics,
		}
		if !s.Singular {
			inst := r.indoms[r.serials[m.Indom]].instances[k.instance]
			s.Instance, s.Internal = inst.external, inst.internal
		}
		if m.Type == format.TypeString {
			s.StringOffset = st.add("")
		}
		l.Slots[i] = s
	}

	l.Labels = make([]section.LabelEntry, len(r.labels))
	for i, lb := range r.labels {
		payload, err := lb.Payload()
		if err != nil {
			return nil, err
		}
		l.Labels[i] = section.LabelEntry{Flags: lb.Type, Identity: lb.Identity, Internal: lb.Internal, Payload: payload}
	}
	l.Strings = st.strs

	// region placement
	instanceType, metricType := format.TocInstances2, format.TocMetrics2
	if version == section.Version1 {
		instanceType, metricType = format.TocInstances, format.TocMetrics
	}
	instSize := uint64(section.InstanceSize(version))
	metricSize := uint64(section.MetricSize(version))

	type region struct {
		typ   format.TocType
		count int
		size  uint64
		off   *uint64
	}
	regions := []region{
		{format.TocIndoms, len(l.Indoms), section.IndomSize, &l.IndomsOffset},
		{instanceType, len(l.Instances), instSize, &l.InstancesOffset},
		{metricType, len(l.Metrics), metricSize, &l.MetricsOffset},
		{format.TocValues, len(l.Values), section.ValueSize, &l.ValuesOffset},
		{format.TocStrings, len(l.Strings), section.StringSize, &l.StringsOffset},
		{format.TocLabels, len(l.Labels), section.LabelSize, &l.LabelsOffset},
	}
	tocs := 0
	for _, rg := range regions {
		if rg.count > 0 {
			tocs++
		}
	}
	off := section.Align(section.HeaderSize + uint64(tocs)*section.TocEntrySize) //nolint:gosec
	for _, rg := range regions {
		if rg.count == 0 {
			continue
		}
		*rg.off = off
		l.Toc = append(l.Toc, section.TocEntry{Type: rg.typ, Count: uint32(rg.count), Offset: off}) //nolint:gosec
		off = section.Align(off + uint64(rg.count)*rg.size)                                         //nolint:gosec
	}
	l.Size = off

	// resolve file-relative references
	for i, d := range r.indoms {
		e := &l.Indoms[i]
		if e.Count > 0 {
			e.Offset = l.InstancesOffset + uint64(base[i])*instSize //nolint:gosec
		}
		e.ShortText = resolve(e.ShortText, l.StringsOffset)
		e.HelpText = resolve(e.HelpText, l.StringsOffset)
		for j := range d.instances {
			inst := &l.Instances[base[i]+j]
			inst.Indom = l.IndomsOffset + uint64(i)*section.IndomSize //nolint:gosec
			inst.ExternalOffset = resolve(inst.ExternalOffset, l.StringsOffset)
		}
	}
	for i := range l.Metrics {
		e := &l.Metrics[i]
		e.NameOffset = resolve(e.NameOffset, l.StringsOffset)
		e.ShortText = resolve(e.ShortText, l.StringsOffset)
		e.HelpText = resolve(e.HelpText, l.StringsOffset)
	}
	for i, k := range r.slots {
		s := &l.Slots[i]
		s.Offset = l.ValuesOffset + uint64(i)*section.ValueSize //nolint:gosec
		s.StringOffset = resolve(s.StringOffset, l.StringsOffset)

		v := section.ValueEntry{Metric: l.MetricsOffset + uint64(k.metric)*metricSize} //nolint:gosec
		if k.instance >= 0 {
			idx := r.serials[r.metrics[k.metric].Indom]
			v.Instance = l.InstancesOffset + uint64(base[idx]+k.instance)*instSize //nolint:gosec
		}
		if s.StringOffset != 0 {
			v.Extra = int64(s.StringOffset) //nolint:gosec
		}
		l.Values[i] = v
	}

	l.Header = section.Header{
		Version:  version,
		TocCount: uint32(len(l.Toc)), //nolint:gosec
		Flags:    r.flags,
		Process:  r.process,
		Cluster:  r.cluster,
	}

	return l, nil
}

// Encode writes the whole layout into data with the given generation tokens.
// data must be at least Size bytes; bytes beyond Size are left untouched.
func (l *Layout) Encode(data []byte, g1, g2 uint64) error {
	if uint64(len(data)) < l.Size {
		return fmt.Errorf("layout needs %d bytes, have %d", l.Size, len(data))
	}
	clear(data[:l.Size])

	h := l.Header
	h.G1, h.G2 = g1, g2
	pos := h.WriteToSlice(data, 0, l.Engine)
	for _, e := range l.Toc {
		pos = e.WriteToSlice(data, pos, l.Engine)
	}

	var err error
	pos = int(l.IndomsOffset) //nolint:gosec
	for _, e := range l.Indoms {
		pos = e.WriteToSlice(data, pos, l.Engine)
	}
	pos = int(l.InstancesOffset) //nolint:gosec
	for _, e := range l.Instances {
		if pos, err = e.WriteToSlice(data, pos, l.Version, l.Engine); err != nil {
			return err
		}
	}
	pos = int(l.MetricsOffset) //nolint:gosec
	for _, e := range l.Metrics {
		if pos, err = e.WriteToSlice(data, pos, l.Version, l.Engine); err != nil {
			return err
		}
	}
	pos = int(l.ValuesOffset) //nolint:gosec
	for _, e := range l.Values {
		pos = e.WriteToSlice(data, pos, l.Engine)
	}
	for i, s := range l.Strings {
		off := l.StringsOffset + uint64(i)*section.StringSize //nolint:gosec
		if err := section.PutString(data[off:off+section.StringSize], s); err != nil {
			return err
		}
	}
	pos = int(l.LabelsOffset) //nolint:gosec
	for _, e := range l.Labels {
		if pos, err = e.WriteToSlice(data, pos, l.Engine); err != nil {
			return err
		}
	}

	return nil
}
