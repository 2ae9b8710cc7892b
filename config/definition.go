package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/registry"
	"github.com/arloliu/mmv/section"
)

// Definition is the YAML description of one MMV file.
//
//	name: myapp
//	cluster: 42
//	flags: [process]
//	indoms:
//	  - serial: 1
//	    short: request queues
//	    instances:
//	      - {id: 0, name: fast}
//	      - {id: 1, name: slow}
//	metrics:
//	  - name: requests
//	    type: u64
//	    semantics: counter
//	    units: {dim_count: 1}
//	    indom: 1
//	labels:
//	  - {type: context, name: env, value: prod}
type Definition struct {
	Name      string        `yaml:"name"`
	Cluster   uint32        `yaml:"cluster"`
	Version   uint32        `yaml:"version"`
	Flags     []string      `yaml:"flags"`
	BigEndian bool          `yaml:"big_endian"`
	Config    Config        `yaml:",inline"`
	Interval  time.Duration `yaml:"interval"`
	Indoms    []IndomSpec   `yaml:"indoms"`
	Metrics   []MetricSpec  `yaml:"metrics"`
	Labels    []LabelSpec   `yaml:"labels"`
}

type IndomSpec struct {
	Serial    uint32         `yaml:"serial"`
	Short     *string        `yaml:"short"`
	Help      *string        `yaml:"help"`
	Instances []InstanceSpec `yaml:"instances"`
}

type InstanceSpec struct {
	ID   int32  `yaml:"id"`
	Name string `yaml:"name"`
}

type MetricSpec struct {
	Name      string    `yaml:"name"`
	Item      uint32    `yaml:"item"`
	Type      string    `yaml:"type"`
	Semantics string    `yaml:"semantics"`
	Units     UnitsSpec `yaml:"units"`
	Indom     uint32    `yaml:"indom"`
	Short     *string   `yaml:"short"`
	Help      *string   `yaml:"help"`
}

type UnitsSpec struct {
	DimSpace   int8  `yaml:"dim_space"`
	DimTime    int8  `yaml:"dim_time"`
	DimCount   int8  `yaml:"dim_count"`
	ScaleSpace uint8 `yaml:"scale_space"`
	ScaleTime  uint8 `yaml:"scale_time"`
	ScaleCount int8  `yaml:"scale_count"`
}

// LabelSpec describes a label. Value may be any YAML value.
type LabelSpec struct {
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional"`
	Identity uint32 `yaml:"identity"`
	Instance int32  `yaml:"instance"`
	Name     string `yaml:"name"`
	Value    any    `yaml:"value"`
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return d, nil
}

// Parse decodes a YAML definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	var d Definition
	if err := yaml.UnmarshalStrict(data, &d); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}

	return &d, nil
}

// Build validates the definition and returns the registry it describes.
func (d *Definition) Build() (*registry.Registry, error) {
	opts := []registry.Option{registry.WithCluster(d.Cluster)}
	if d.Version != 0 {
		opts = append(opts, registry.WithVersion(d.Version))
	}
	if d.BigEndian {
		opts = append(opts, registry.WithBigEndian())
	}
	var flags format.Flags
	for _, name := range d.Flags {
		f, err := format.ParseFlag(name)
		if err != nil {
			return nil, err
		}
		flags |= f
	}
	opts = append(opts, registry.WithFlags(flags))

	reg, err := registry.New(d.Name, opts...)
	if err != nil {
		return nil, err
	}

	for _, in := range d.Indoms {
		if err := reg.AddIndom(in.Serial, textOptions(in.Short, in.Help)...); err != nil {
			return nil, err
		}
		for _, inst := range in.Instances {
			if err := reg.AddInstance(in.Serial, inst.ID, inst.Name); err != nil {
				return nil, err
			}
		}
	}

	for _, ms := range d.Metrics {
		m, err := ms.metric()
		if err != nil {
			return nil, err
		}
		if _, err := reg.AddMetric(m, textOptions(ms.Short, ms.Help)...); err != nil {
			return nil, err
		}
	}

	for _, ls := range d.Labels {
		kind, err := format.ParseLabelKind(ls.Type)
		if err != nil {
			return nil, err
		}
		if ls.Optional {
			kind |= format.LabelOptional
		}
		l := registry.Label{Type: kind, Identity: ls.Identity, Internal: ls.Instance, Name: ls.Name, Value: plain(ls.Value)}
		if err := reg.AddLabel(l); err != nil {
			return nil, err
		}
	}

	return reg, nil
}

func (ms MetricSpec) metric() (registry.Metric, error) {
	t, err := format.ParseValueType(ms.Type)
	if err != nil {
		return registry.Metric{}, fmt.Errorf("metric %q: %w", ms.Name, err)
	}
	s, err := format.ParseSemantics(ms.Semantics)
	if err != nil {
		return registry.Metric{}, fmt.Errorf("metric %q: %w", ms.Name, err)
	}

	return registry.Metric{
		Name:      ms.Name,
		Item:      ms.Item,
		Type:      t,
		Semantics: s,
		Units: section.Units{
			DimSpace:   ms.Units.DimSpace,
			DimTime:    ms.Units.DimTime,
			DimCount:   ms.Units.DimCount,
			ScaleSpace: ms.Units.ScaleSpace,
			ScaleTime:  ms.Units.ScaleTime,
			ScaleCount: ms.Units.ScaleCount,
		},
		Indom: ms.Indom,
	}, nil
}

func textOptions(short, help *string) []registry.TextOption {
	var opts []registry.TextOption
	if short != nil {
		opts = append(opts, registry.WithShortText(*short))
	}
	if help != nil {
		opts = append(opts, registry.WithHelpText(*help))
	}

	return opts
}

// plain converts yaml.v2 generic maps, which encoding/json cannot marshal,
// into string keyed maps.
func plain(v any) any {
	switch x := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, val := range x {
			m[fmt.Sprint(k)] = plain(val)
		}

		return m
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = plain(val)
		}

		return out
	default:
		return v
	}
}
