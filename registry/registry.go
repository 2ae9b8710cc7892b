// Package registry accumulates MMV metric, instance domain and label
// definitions and computes the file layout needed to materialize them.
//
// All validation happens here, before any file I/O: duplicate metric names
// or items, indom serial collisions, malformed units and inconsistent
// type/semantics combinations are reported synchronously and leave the
// registry unchanged.
package registry

import (
	"fmt"
	"strings"
	"unicode"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/arloliu/mmv/endian"
	"github.com/arloliu/mmv/errs"
	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/internal/hash"
	"github.com/arloliu/mmv/internal/options"
	"github.com/arloliu/mmv/section"
)

// Metric describes one metric to export.
type Metric struct {
	// Name is the metric name, unique within the registry.
	Name string
	// Item is the PMID item number (1-1023). Zero assigns the next free item.
	Item uint32
	// Type is the value type of every slot of this metric.
	Type format.ValueType
	// Semantics describes how samples relate over time.
	Semantics format.Semantics
	// Units is the dimensional unit of the value.
	Units section.Units
	// Indom is the instance domain serial, or section.NoIndom for a single value.
	Indom uint32
}

type metricDef struct {
	Metric
	texts
}

type instanceDef struct {
	internal int32
	external string
}

type indomDef struct {
	serial    uint32
	texts     texts
	instances []instanceDef
	names     *hash.Index
	ids       mapset.Set[int32]
}

// slotKey identifies a value slot by metric position and instance position
// within the metric's indom (-1 for singular metrics).
type slotKey struct {
	metric   int
	instance int
}

// Registry is the in-memory descriptor set of one MMV file.
//
// A Registry is not safe for concurrent mutation.
type Registry struct {
	name    string
	cluster uint32
	flags   format.Flags
	process int32
	version uint32
	engine  endian.EndianEngine

	metrics []metricDef
	names   *hash.Index
	items   mapset.Set[uint32]
	indoms  []*indomDef
	serials map[uint32]int
	labels  []Label

	sealed bool
	slots  []slotKey
}

// New creates an empty registry. name identifies the file under the MMV
// directory and prefixes metric names unless format.FlagNoPrefix is set.
func New(name string, opts ...Option) (*Registry, error) {
	if name == "" || strings.ContainsAny(name, "/\x00") || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidRegistryName, name)
	}

	r := &Registry{
		name:    name,
		process: defaultProcess(),
		engine:  endian.GetLittleEndianEngine(),
		names:   hash.NewIndex(16),
		items:   mapset.NewThreadUnsafeSet[uint32](),
		serials: make(map[uint32]int),
	}
	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) Name() string { return r.name }

func (r *Registry) Cluster() uint32 { return r.cluster }

func (r *Registry) Flags() format.Flags { return r.flags }

func (r *Registry) Process() int32 { return r.process }

func (r *Registry) Engine() endian.EndianEngine { return r.engine }

func (r *Registry) Sealed() bool { return r.sealed }

// MetricCount returns the number of metrics added so far.
func (r *Registry) MetricCount() int {
	return len(r.metrics)
}

// AddIndom declares an instance domain. Serials must be non-zero and unique.
func (r *Registry) AddIndom(serial uint32, opts ...TextOption) error {
	if r.sealed {
		return errs.ErrRegistryAlreadyStarted
	}
	if serial == section.NoIndom {
		return fmt.Errorf("%w: serial 0 is reserved", errs.ErrDuplicateIndom)
	}
	if _, ok := r.serials[serial]; ok {
		return fmt.Errorf("%w: %d", errs.ErrDuplicateIndom, serial)
	}

	d := &indomDef{
		serial: serial,
		names:  hash.NewIndex(4),
		ids:    mapset.NewThreadUnsafeSet[int32](),
	}
	if err := options.Apply(&d.texts, opts...); err != nil {
		return err
	}

	r.serials[serial] = len(r.indoms)
	r.indoms = append(r.indoms, d)

	return nil
}

// AddInstance adds an instance to a declared indom. Internal ids and external
// names must both be unique within the indom.
func (r *Registry) AddInstance(serial uint32, internal int32, external string) error {
	if r.sealed {
		return errs.ErrRegistryAlreadyStarted
	}
	_, err := r.addInstance(serial, internal, external)

	return err
}

func (r *Registry) addInstance(serial uint32, internal int32, external string) (*indomDef, error) {
	idx, ok := r.serials[serial]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errs.ErrUnknownIndom, serial)
	}
	if err := validateName(external, errs.ErrInvalidInstanceName); err != nil {
		return nil, err
	}
	if r.version == section.Version1 && len(external) >= section.NameMax {
		return nil, fmt.Errorf("%w: %q longer than %d bytes", errs.ErrInvalidInstanceName, external, section.NameMax-1)
	}

	d := r.indoms[idx]
	if d.ids.Contains(internal) {
		return nil, fmt.Errorf("%w: indom %d internal id %d", errs.ErrDuplicateInstance, serial, internal)
	}
	if !d.names.Add(external, len(d.instances)) {
		return nil, fmt.Errorf("%w: indom %d name %q", errs.ErrDuplicateInstance, serial, external)
	}
	d.ids.Add(internal)
	d.instances = append(d.instances, instanceDef{internal: internal, external: external})

	return d, nil
}

// AddMetric validates m and adds it to the registry. It returns the item
// number, which differs from m.Item only when m.Item was zero.
func (r *Registry) AddMetric(m Metric, opts ...TextOption) (uint32, error) {
	if r.sealed {
		return 0, errs.ErrRegistryAlreadyStarted
	}
	if err := validateName(m.Name, errs.ErrInvalidMetricName); err != nil {
		return 0, err
	}
	if r.version == section.Version1 && len(m.Name) >= section.NameMax {
		return 0, fmt.Errorf("%w: %q longer than %d bytes", errs.ErrInvalidMetricName, m.Name, section.NameMax-1)
	}
	if err := validateKind(m.Type, m.Semantics); err != nil {
		return 0, err
	}
	if err := m.Units.Validate(); err != nil {
		return 0, err
	}
	if m.Indom != section.NoIndom {
		if _, ok := r.serials[m.Indom]; !ok {
			return 0, fmt.Errorf("%w: metric %q references indom %d", errs.ErrUnknownIndom, m.Name, m.Indom)
		}
	}
	if _, ok := r.names.Get(m.Name); ok {
		return 0, fmt.Errorf("%w: %q", errs.ErrDuplicateMetricName, m.Name)
	}

	item, err := r.claimItem(m.Item)
	if err != nil {
		return 0, fmt.Errorf("metric %q: %w", m.Name, err)
	}

	def := metricDef{Metric: m}
	def.Item = item
	if err := options.Apply(&def.texts, opts...); err != nil {
		r.items.Remove(item)
		return 0, err
	}

	r.names.Add(m.Name, len(r.metrics))
	r.metrics = append(r.metrics, def)

	return item, nil
}

func (r *Registry) claimItem(item uint32) (uint32, error) {
	if item == 0 {
		for candidate := uint32(1); candidate <= section.MaxItem; candidate++ {
			if !r.items.Contains(candidate) {
				r.items.Add(candidate)
				return candidate, nil
			}
		}

		return 0, fmt.Errorf("%w: no free items", errs.ErrInvalidMetricItem)
	}
	if item > section.MaxItem {
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidMetricItem, item)
	}
	if !r.items.Add(item) {
		return 0, fmt.Errorf("%w: %d", errs.ErrDuplicateMetricItem, item)
	}

	return item, nil
}

// Lookup returns the definition of the named metric.
func (r *Registry) Lookup(name string) (Metric, bool) {
	i, ok := r.names.Get(name)
	if !ok {
		return Metric{}, false
	}

	return r.metrics[i].Metric, true
}

// Seal freezes the definitions and fixes the order of value slots. Further
// Add calls fail with errs.ErrRegistryAlreadyStarted; the only structural
// change still allowed is Extend.
func (r *Registry) Seal() error {
	if r.sealed {
		return errs.ErrRegistryAlreadyStarted
	}
	if len(r.metrics) == 0 {
		return errs.ErrNoMetricsAdded
	}
	for _, m := range r.metrics {
		if m.Indom == section.NoIndom {
			continue
		}
		if len(r.indoms[r.serials[m.Indom]].instances) == 0 {
			return fmt.Errorf("%w: metric %q indom %d", errs.ErrEmptyIndom, m.Name, m.Indom)
		}
	}
	if _, err := r.resolveVersion(); err != nil {
		return err
	}

	r.slots = r.slots[:0]
	for mi, m := range r.metrics {
		if m.Indom == section.NoIndom {
			r.slots = append(r.slots, slotKey{metric: mi, instance: -1})
			continue
		}
		for ii := range r.indoms[r.serials[m.Indom]].instances {
			r.slots = append(r.slots, slotKey{metric: mi, instance: ii})
		}
	}
	r.sealed = true

	return nil
}

// Extend adds an instance to a sealed registry. New value slots are appended
// after all existing ones so previously resolved slot indices stay valid.
// It returns the indices of the new slots.
func (r *Registry) Extend(serial uint32, internal int32, external string) ([]int, error) {
	if !r.sealed {
		return nil, r.AddInstance(serial, internal, external)
	}

	d, err := r.addInstance(serial, internal, external)
	if err != nil {
		return nil, err
	}

	ii := len(d.instances) - 1
	var added []int
	for mi, m := range r.metrics {
		if m.Indom == serial {
			added = append(added, len(r.slots))
			r.slots = append(r.slots, slotKey{metric: mi, instance: ii})
		}
	}

	return added, nil
}

func (r *Registry) resolveVersion() (uint32, error) {
	switch {
	case r.version == 0 && len(r.labels) > 0:
		return section.Version3, nil
	case r.version == 0:
		return section.Version2, nil
	case len(r.labels) > 0 && r.version < section.Version3:
		return 0, fmt.Errorf("%w: labels require version %d, registry pinned to %d",
			errs.ErrInvalidVersion, section.Version3, r.version)
	default:
		return r.version, nil
	}
}

func validateName(name string, kind error) error {
	if name == "" {
		return fmt.Errorf("%w: empty", kind)
	}
	if len(name) > section.StringMax {
		return fmt.Errorf("%w: %d bytes", kind, len(name))
	}
	for _, c := range name {
		if unicode.IsSpace(c) || c == 0 || !unicode.IsPrint(c) {
			return fmt.Errorf("%w: %q", kind, name)
		}
	}

	return nil
}

func validateKind(t format.ValueType, s format.Semantics) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %s", errs.ErrInvalidValueType, t)
	}
	if !s.Valid() {
		return fmt.Errorf("%w: %s", errs.ErrInvalidSemantics, s)
	}
	if t == format.TypeString && s == format.SemCounter {
		return fmt.Errorf("%w: string counter", errs.ErrInvalidTypeSemantics)
	}
	if t == format.TypeElapsed && s != format.SemCounter {
		return fmt.Errorf("%w: elapsed must be a counter", errs.ErrInvalidTypeSemantics)
	}

	return nil
}
