package preview

import (
	"strconv"
	"testing"
)

func TestDataURI(t *testing.T) {
	if got := dataURI([]byte("hi")); got != "data:image/jpeg;base64,aGk=" {
		t.Errorf("dataURI = %q", got)
	}
}

func TestShouldInlineOriginal_GateBoundaries(t *testing.T) {
	p := New(Config{UploadDir: t.TempDir()}, &fakeTool{})

	tests := []struct {
		name   string
		width  int
		height int
		want   bool
	}{
		{"just under the gate", 1999999, 1, true},
		{"exactly at the gate", 2000, 1000, false},
		{"just over the gate", 2000001, 1, false},
		{"small image", 800, 600, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord()
			rec.Set(keyOriginalWidth, strconv.Itoa(tt.width))
			rec.Set(keyOriginalHeight, strconv.Itoa(tt.height))
			if got := p.shouldInlineOriginal(rec); got != tt.want {
				t.Errorf("shouldInlineOriginal(%dx%d) = %v, want %v", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestShouldInlineOriginal_UnknownDimensionsFailGate(t *testing.T) {
	p := New(Config{UploadDir: t.TempDir()}, &fakeTool{})
	if p.shouldInlineOriginal(fallbackRecord()) {
		t.Error("expected unknown dimensions to fail the inline gate")
	}
}
