// Package metrics emits operational measurements as CloudWatch Embedded
// Metrics Format (EMF) documents: one JSON line per flush. An EMF-aware
// collector turns the lines into real metrics; hosts without one still get a
// grep-able measurement log. Emission is a local write and adds no request
// latency.
//
// See: https://docs.aws.amazon.com/AmazonCloudWatch/latest/monitoring/CloudWatch_Embedded_Metric_Format_Specification.html
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// Metric units understood by EMF collectors.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// output receives flushed documents. Swap it with SetOutput before serving
// traffic; there is no locking around it.
var output io.Writer = os.Stdout

// SetOutput redirects flushed documents and returns the previous writer.
// Meant for tests.
func SetOutput(w io.Writer) io.Writer {
	prev := output
	output = w
	return prev
}

// metricDef names one metric and its unit inside the _aws directive.
type metricDef struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

// emfDirective is the _aws block every EMF document must carry.
type emfDirective struct {
	Timestamp         int64      `json:"Timestamp"`
	CloudWatchMetrics []cwMetric `json:"CloudWatchMetrics"`
}

type cwMetric struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []metricDef `json:"Metrics"`
}

// Recorder accumulates the dimensions, metrics, and properties of one EMF
// document. Not safe for concurrent use; build one per measured operation and
// Flush it once.
type Recorder struct {
	namespace  string
	dimensions map[string]string
	units      map[string]string
	values     map[string]float64
	properties map[string]interface{}
}

// New starts a Recorder in the given namespace. When PREVIEW_SERVICE_NAME is
// set, a ServiceName dimension is added so one collector can keep several
// deployments apart.
func New(namespace string) *Recorder {
	r := &Recorder{
		namespace:  namespace,
		dimensions: make(map[string]string),
		units:      make(map[string]string),
		values:     make(map[string]float64),
		properties: make(map[string]interface{}),
	}
	if name := os.Getenv("PREVIEW_SERVICE_NAME"); name != "" {
		r.dimensions["ServiceName"] = name
	}
	return r
}

// Dimension adds an indexed key-value pair; collectors expose dimensions as
// filterable metric attributes, so keep the value set small.
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.dimensions[key] = value
	return r
}

// Metric records a value under one of the Unit* constants.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.units[name] = unit
	r.values[name] = value
	return r
}

// Timing records a duration as a milliseconds metric.
func (r *Recorder) Timing(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Count records a metric with value 1.
func (r *Recorder) Count(name string) *Recorder {
	return r.Metric(name, 1, UnitCount)
}

// Property attaches a non-metric field. Properties land in the log line and
// are searchable there, but create no metric.
func (r *Recorder) Property(key string, value interface{}) *Recorder {
	r.properties[key] = value
	return r
}

// Flush writes the document as a single JSON line. A Recorder with no metrics
// flushes to nothing, and a flushed Recorder should not be reused.
func (r *Recorder) Flush() {
	if len(r.values) == 0 {
		return
	}

	doc := make(map[string]interface{}, len(r.dimensions)+len(r.values)+len(r.properties)+1)

	// Sorted so repeated flushes produce byte-stable directives.
	names := make([]string, 0, len(r.values))
	for name := range r.values {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]metricDef, 0, len(names))
	for _, name := range names {
		defs = append(defs, metricDef{Name: name, Unit: r.units[name]})
		doc[name] = r.values[name]
	}

	dimKeys := make([]string, 0, len(r.dimensions))
	for k, v := range r.dimensions {
		dimKeys = append(dimKeys, k)
		doc[k] = v
	}
	sort.Strings(dimKeys)

	for k, v := range r.properties {
		doc[k] = v
	}

	doc["_aws"] = emfDirective{
		Timestamp: time.Now().UnixMilli(),
		CloudWatchMetrics: []cwMetric{{
			Namespace:  r.namespace,
			Dimensions: [][]string{dimKeys},
			Metrics:    defs,
		}},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "emf: marshal metrics document: %v\n", err)
		return
	}
	fmt.Fprintln(output, string(data))
}
