package reader

import (
	"fmt"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/hash"
	"github.com/arloliu/mmv/internal/mmap"
	"github.com/arloliu/mmv/section"
)

// view is the decoded structure of one consistent scan.
type view struct {
	header  section.Header
	engine  endian.EndianEngine
	toc     []section.TocEntry
	metrics []Metric
	indoms  []Indom
	labels  []Label
	values  []Value
	names   *hash.Index // metric name -> metrics index
	slots   *hash.Index // metric[instance] -> values index
}

// generation returns the two generation words, loaded atomically.
func generation(data []byte, engine endian.EndianEngine) (uint64, uint64) {
	return mmap.Load64(data, section.OffG1, engine), mmap.Load64(data, section.OffG2, engine)
}

// scanOnce decodes data if the writer is not mid-update. A parse error
// observed while the generation moved is reported as ErrGenerationChanged.
func scanOnce(data []byte) (*view, error) {
	engine, err := section.DetectEngine(data)
	if err != nil {
		return nil, err
	}
	g1, g2 := generation(data, engine)
	if g1 != g2 {
		return nil, fmt.Errorf("%w: g1=%d g2=%d", errs.ErrWriteInProgress, g1, g2)
	}

	v, parseErr := parse(data, engine)

	e1, e2 := generation(data, engine)
	if e1 != g1 || e2 != g1 {
		return nil, fmt.Errorf("%w: %d became %d/%d during scan", errs.ErrGenerationChanged, g1, e1, e2)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	v.header.G1, v.header.G2 = g1, g1

	return v, nil
}

func parse(data []byte, engine endian.EndianEngine) (*view, error) {
	v := &view{engine: engine}
	if err := v.header.Parse(data, engine); err != nil {
		return nil, err
	}
	version := v.header.Version
	size := uint64(len(data))

	tocEnd := uint64(section.HeaderSize) + uint64(v.header.TocCount)*section.TocEntrySize
	if tocEnd > size {
		return nil, fmt.Errorf("%w: %d toc entries exceed %d bytes", errs.ErrOffsetOutOfRange, v.header.TocCount, size)
	}

	regions := make(map[format.TocType]section.TocEntry, v.header.TocCount)
	for i := range uint64(v.header.TocCount) {
		off := section.HeaderSize + i*section.TocEntrySize
		e, err := section.ParseTocEntry(data[off:], engine)
		if err != nil {
			return nil, err
		}
		if err := e.Validate(version, size); err != nil {
			return nil, err
		}
		if _, dup := regions[e.Type]; dup {
			return nil, fmt.Errorf("%w: duplicate %s region", errs.ErrInvalidTOC, e.Type)
		}
		regions[e.Type] = e
		v.toc = append(v.toc, e)
	}

	instType, metricType := format.TocInstances2, format.TocMetrics2
	if version == section.Version1 {
		instType, metricType = format.TocInstances, format.TocMetrics
	}

	instances, err := v.parseIndoms(data, regions[format.TocIndoms], regions[instType])
	if err != nil {
		return nil, err
	}
	metricAt, err := v.parseMetrics(data, regions[metricType])
	if err != nil {
		return nil, err
	}
	if err := v.parseValues(data, regions[format.TocValues], metricAt, instances); err != nil {
		return nil, err
	}
	if err := v.parseLabels(data, regions[format.TocLabels]); err != nil {
		return nil, err
	}

	return v, nil
}

func optionalString(data []byte, off uint64) (*string, error) {
	if off == 0 {
		return nil, nil //nolint:nilnil
	}
	s, err := section.ReadStringAt(data, off)
	if err != nil {
		return nil, err
	}

	return &s, nil
}

func (v *view) externalName(data []byte, e section.InstanceEntry) (string, error) {
	if v.header.Version == section.Version1 {
		return e.External, nil
	}

	return section.ReadStringAt(data, e.ExternalOffset)
}

// parseIndoms decodes the indom region and the instances each indom points
// at. It returns the instances keyed by record offset.
func (v *view) parseIndoms(data []byte, indoms, insts section.TocEntry) (map[uint64]Instance, error) {
	version := v.header.Version
	instSize := uint64(section.InstanceSize(version)) //nolint:gosec
	byOffset := make(map[uint64]Instance, insts.Count)

	for i := range uint64(indoms.Count) {
		off := indoms.Offset + i*section.IndomSize
		e, err := section.ParseIndomEntry(data[off:], v.engine)
		if err != nil {
			return nil, err
		}
		d := Indom{Serial: e.Serial}
		if d.ShortText, err = optionalString(data, e.ShortText); err != nil {
			return nil, err
		}
		if d.HelpText, err = optionalString(data, e.HelpText); err != nil {
			return nil, err
		}

		if e.Count > 0 {
			first, span := e.Offset, uint64(e.Count)*instSize
			if insts.Count == 0 || first < insts.Offset || !section.InBounds(first, span, insts.End(version)) ||
				(first-insts.Offset)%instSize != 0 {
				return nil, fmt.Errorf("%w: indom %d instances at %d", errs.ErrOffsetOutOfRange, e.Serial, e.Offset)
			}
		}
		d.Instances = make([]Instance, 0, e.Count)
		for j := range uint64(e.Count) {
			ioff := e.Offset + j*instSize
			ie, err := section.ParseInstanceEntry(data[ioff:], version, v.engine)
			if err != nil {
				return nil, err
			}
			if ie.Indom != off {
				return nil, fmt.Errorf("%w: instance at %d does not belong to indom %d", errs.ErrInvalidTOC, ioff, e.Serial)
			}
			name, err := v.externalName(data, ie)
			if err != nil {
				return nil, err
			}
			inst := Instance{Internal: ie.Internal, External: name}
			d.Instances = append(d.Instances, inst)
			byOffset[ioff] = inst
		}
		v.indoms = append(v.indoms, d)
	}

	return byOffset, nil
}

// parseMetrics decodes the metric region and returns metric indices keyed
// by record offset.
func (v *view) parseMetrics(data []byte, region section.TocEntry) (map[uint64]int, error) {
	version := v.header.Version
	size := uint64(section.MetricSize(version)) //nolint:gosec
	byOffset := make(map[uint64]int, region.Count)
	v.names = hash.NewIndex(int(region.Count))

	for i := range uint64(region.Count) {
		off := region.Offset + i*size
		e, err := section.ParseMetricEntry(data[off:], version, v.engine)
		if err != nil {
			return nil, err
		}
		m := Metric{
			Name:      e.Name,
			Item:      e.Item,
			Type:      e.Type,
			Semantics: e.Semantics,
			Units:     section.UnpackUnits(e.Dimension),
			Indom:     e.Indom,
		}
		if version != section.Version1 {
			if m.Name, err = section.ReadStringAt(data, e.NameOffset); err != nil {
				return nil, err
			}
		}
		if m.ShortText, err = optionalString(data, e.ShortText); err != nil {
			return nil, err
		}
		if m.HelpText, err = optionalString(data, e.HelpText); err != nil {
			return nil, err
		}
		if !m.Type.Valid() {
			return nil, fmt.Errorf("%w: metric %q type %d", errs.ErrInvalidValueType, m.Name, m.Type)
		}

		byOffset[off] = len(v.metrics)
		v.names.Add(m.Name, len(v.metrics))
		v.metrics = append(v.metrics, m)
	}

	return byOffset, nil
}

func (v *view) parseValues(data []byte, region section.TocEntry, metricAt map[uint64]int, instances map[uint64]Instance) error {
	v.slots = hash.NewIndex(int(region.Count))
	for i := range uint64(region.Count) {
		off := region.Offset + i*section.ValueSize
		e, err := section.ParseValueEntry(data[off:], v.engine)
		if err != nil {
			return err
		}
		mi, ok := metricAt[e.Metric]
		if !ok {
			return fmt.Errorf("%w: value at %d references metric offset %d", errs.ErrInvalidTOC, off, e.Metric)
		}
		m := v.metrics[mi]
		val := Value{
			Metric:   m.Name,
			Item:     m.Item,
			Type:     m.Type,
			Singular: e.Instance == 0,
			Offset:   off,
			metric:   mi,
		}
		if !val.Singular {
			inst, ok := instances[e.Instance]
			if !ok {
				return fmt.Errorf("%w: value at %d references instance offset %d", errs.ErrInvalidTOC, off, e.Instance)
			}
			val.Instance, val.Internal = inst.External, inst.Internal
		}
		v.slots.Add(slotName(val.Metric, val.Instance), len(v.values))
		v.values = append(v.values, val)
	}

	return nil
}

func (v *view) parseLabels(data []byte, region section.TocEntry) error {
	for i := range uint64(region.Count) {
		e, err := section.ParseLabelEntry(data[region.Offset+i*section.LabelSize:], v.engine)
		if err != nil {
			return err
		}
		v.labels = append(v.labels, Label{Type: e.Flags, Identity: e.Identity, Internal: e.Internal, Payload: e.Payload})
	}

	return nil
}

func slotName(metric, instance string) string {
	if instance == "" {
		return metric
	}

	return metric + "[" + instance + "]"
}
