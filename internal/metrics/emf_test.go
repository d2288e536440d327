package metrics

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// captureOutput points the package at a buffer for the duration of one test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestNew_ServiceNameDimension(t *testing.T) {
	t.Setenv("PREVIEW_SERVICE_NAME", "test-service")

	r := New("TestNamespace")
	if r.namespace != "TestNamespace" {
		t.Errorf("expected namespace TestNamespace, got %s", r.namespace)
	}
	if r.dimensions["ServiceName"] != "test-service" {
		t.Errorf("expected ServiceName dimension test-service, got %q", r.dimensions["ServiceName"])
	}
}

func TestNew_NoServiceName(t *testing.T) {
	t.Setenv("PREVIEW_SERVICE_NAME", "")

	if _, ok := New("TestNamespace").dimensions["ServiceName"]; ok {
		t.Error("expected no ServiceName dimension when the env var is unset")
	}
}

func TestRecorder_FlushDocument(t *testing.T) {
	t.Setenv("PREVIEW_SERVICE_NAME", "")
	buf := captureOutput(t)

	New("ImagePreview").
		Dimension("Endpoint", "/thumbnail").
		Timing("RequestLatencyMs", 1234*time.Millisecond).
		Count("RequestCount").
		Property("status", "200").
		Flush()

	line := buf.String()
	if !strings.HasSuffix(line, "\n") || strings.Count(line, "\n") != 1 {
		t.Fatalf("expected exactly one line, got %q", line)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(line), &doc); err != nil {
		t.Fatalf("flushed document is not JSON: %v\n%s", err, line)
	}

	aws, ok := doc["_aws"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing _aws directive: %s", line)
	}
	if _, ok := aws["Timestamp"]; !ok {
		t.Error("missing Timestamp in _aws directive")
	}

	cw, ok := aws["CloudWatchMetrics"].([]interface{})
	if !ok || len(cw) != 1 {
		t.Fatalf("expected one CloudWatchMetrics entry: %s", line)
	}
	entry := cw[0].(map[string]interface{})
	if entry["Namespace"] != "ImagePreview" {
		t.Errorf("namespace = %v, want ImagePreview", entry["Namespace"])
	}

	// Metric definitions come out name-sorted.
	defs := entry["Metrics"].([]interface{})
	if len(defs) != 2 {
		t.Fatalf("expected 2 metric definitions, got %d", len(defs))
	}
	first := defs[0].(map[string]interface{})
	if first["Name"] != "RequestCount" || first["Unit"] != UnitCount {
		t.Errorf("unexpected first metric definition: %v", first)
	}

	if doc["Endpoint"] != "/thumbnail" {
		t.Errorf("Endpoint = %v, want /thumbnail", doc["Endpoint"])
	}
	if doc["RequestLatencyMs"] != 1234.0 {
		t.Errorf("RequestLatencyMs = %v, want 1234", doc["RequestLatencyMs"])
	}
	if doc["RequestCount"] != float64(1) {
		t.Errorf("RequestCount = %v, want 1", doc["RequestCount"])
	}
	if doc["status"] != "200" {
		t.Errorf("status = %v, want 200", doc["status"])
	}
}

func TestRecorder_FlushEmpty(t *testing.T) {
	buf := captureOutput(t)

	New("Test").Dimension("Endpoint", "/x").Property("status", "200").Flush()

	if buf.Len() != 0 {
		t.Errorf("expected no output without metrics, got %s", buf.String())
	}
}

func TestRecorder_Timing(t *testing.T) {
	t.Setenv("PREVIEW_SERVICE_NAME", "")
	r := New("Test").Timing("Elapsed", 2500*time.Millisecond)

	if r.values["Elapsed"] != 2500 {
		t.Errorf("Elapsed = %v, want 2500", r.values["Elapsed"])
	}
	if r.units["Elapsed"] != UnitMilliseconds {
		t.Errorf("unit = %v, want Milliseconds", r.units["Elapsed"])
	}
}

func TestRecorder_Chaining(t *testing.T) {
	t.Setenv("PREVIEW_SERVICE_NAME", "")
	r := New("Test").
		Dimension("Op", "render").
		Metric("Duration", 100, UnitMilliseconds).
		Count("Calls").
		Property("id", "xyz")

	if r.dimensions["Op"] != "render" {
		t.Error("chaining Dimension failed")
	}
	if r.values["Duration"] != 100 {
		t.Error("chaining Metric failed")
	}
	if r.values["Calls"] != 1 {
		t.Error("chaining Count failed")
	}
	if r.properties["id"] != "xyz" {
		t.Error("chaining Property failed")
	}
}
