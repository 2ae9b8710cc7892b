package exporter

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/reader"
)

// instrumentName returns the OpenTelemetry instrument name used for an MMV
// metric.
func instrumentName(s *settings, metric string) string {
	name := s.namespace
	if s.registry != "" {
		name += "." + s.registry
	}
	name += "." + metric

	return sanitize(name, func(r rune) bool { return isAlnum(r) || r == '_' || r == '.' || r == '-' || r == '/' })
}

// RegisterOTel creates an observable instrument on meter for every numeric
// metric of r and a single callback observing all of them. Counters become
// Float64ObservableCounter, other semantics Float64ObservableGauge.
// Unregister the returned registration to stop observing; it also releases
// readers opened after the file was replaced. r itself is never closed.
func RegisterOTel(meter metric.Meter, r *reader.Reader, opts ...Option) (metric.Registration, error) {
	s, err := newSettings(r, opts)
	if err != nil {
		return nil, err
	}

	instruments := make(map[string]metric.Float64Observable)
	var observables []metric.Observable
	for _, m := range r.Metrics() {
		if m.Type == format.TypeString {
			continue
		}
		name := instrumentName(s, m.Name)
		desc := metric.WithDescription(help(m))

		var inst metric.Float64Observable
		if m.Semantics == format.SemCounter {
			inst, err = meter.Float64ObservableCounter(name, desc)
		} else {
			inst, err = meter.Float64ObservableGauge(name, desc)
		}
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
		instruments[m.Name] = inst
		observables = append(observables, inst)
	}

	src := newSource(r, s.logger)
	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		samples, _, err := src.collect()
		if err != nil {
			s.logger.Warn("mmv observation skipped", "path", src.reader().Path(), "error", err)
			return nil
		}
		for _, smp := range samples {
			inst, ok := instruments[smp.metric.Name]
			if !ok {
				continue
			}
			if smp.singular {
				o.ObserveFloat64(inst, smp.value)
			} else {
				o.ObserveFloat64(inst, smp.value, metric.WithAttributes(attribute.String(InstanceLabel, smp.instance)))
			}
		}

		return nil
	}, observables...)
	if err != nil {
		return nil, err
	}

	return otelRegistration{Registration: reg, src: src}, nil
}

// otelRegistration ties the lifetime of reopened readers to the callback.
type otelRegistration struct {
	metric.Registration
	src *source
}

func (o otelRegistration) Unregister() error {
	return errors.Join(o.Registration.Unregister(), o.src.close())
}
