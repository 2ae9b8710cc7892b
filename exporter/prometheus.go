package exporter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/mmv/format"
	"github.com/arloliu/mmv/reader"
)

// Collector is a prometheus.Collector over one MMV file. Counter semantics
// map to counters, everything else to gauges.
type Collector struct {
	src *source
	s   *settings

	mu     sync.Mutex
	epoch  uint64
	descs  map[string]*prometheus.Desc // MMV metric name -> descriptor
	owners map[string]string           // Prometheus name -> MMV metric name
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector over r. The collector never closes r;
// readers it opens itself after the file was replaced are released by Close.
func NewCollector(r *reader.Reader, opts ...Option) (*Collector, error) {
	s, err := newSettings(r, opts)
	if err != nil {
		return nil, err
	}

	return &Collector{
		src:    newSource(r, s.logger),
		s:      s,
		descs:  make(map[string]*prometheus.Desc),
		owners: make(map[string]string),
	}, nil
}

// Reader returns the reader the collector currently collects from.
func (c *Collector) Reader() *reader.Reader {
	return c.src.reader()
}

// Close releases the readers the collector opened on its own.
func (c *Collector) Close() error {
	return c.src.close()
}

// MetricName returns the Prometheus name used for an MMV metric.
func (c *Collector) MetricName(metric string) string {
	fq := prometheus.BuildFQName(c.s.namespace, c.s.registry, metric)

	return sanitize(fq, func(r rune) bool { return isAlnum(r) || r == '_' || r == ':' })
}

// Describe sends the descriptors of the metrics currently in the file.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

// Collect refreshes the reader and sends one constant metric per numeric
// value. Nothing is sent when the file is mid-update or gone.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	samples, epoch, err := c.src.collect()
	if err != nil {
		c.s.logger.Warn("mmv collection skipped", "path", c.src.reader().Path(), "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// a replaced file may describe its metrics differently
	if epoch != c.epoch {
		c.epoch = epoch
		clear(c.descs)
		clear(c.owners)
	}

	for _, s := range samples {
		d := c.desc(s)
		if d == nil {
			continue
		}

		vt := prometheus.GaugeValue
		if s.metric.Semantics == format.SemCounter {
			vt = prometheus.CounterValue
		}

		var labels []string
		if !s.singular {
			labels = []string{s.instance}
		}
		ch <- prometheus.MustNewConstMetric(d, vt, s.value, labels...)
	}
}

// desc returns the descriptor of s, or nil when its Prometheus name is
// already taken by a different MMV metric.
func (c *Collector) desc(s sample) *prometheus.Desc {
	if d, ok := c.descs[s.metric.Name]; ok {
		return d
	}

	name := c.MetricName(s.metric.Name)
	if owner, taken := c.owners[name]; taken && owner != s.metric.Name {
		c.s.logger.Warn("mmv metric skipped, name collides after sanitizing",
			"metric", s.metric.Name, "exported_as", name, "kept", owner)
		c.descs[s.metric.Name] = nil

		return nil
	}

	var variable []string
	if !s.singular {
		variable = []string{InstanceLabel}
	}
	d := prometheus.NewDesc(name, help(s.metric), variable, nil)
	c.descs[s.metric.Name] = d
	c.owners[name] = s.metric.Name

	return d
}
