package imagetool

import "testing"

func TestNew_ProviderSelection(t *testing.T) {
	tests := []struct {
		name    string
		tool    string
		want    string
		wantErr bool
	}{
		{"default is native", "", "native", false},
		{"native", "native", "native", false},
		{"magick", "magick", "magick", false},
		{"unknown", "graphick", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.tool)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("New(%q) expected error, got provider %v", tt.tool, p)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.tool, err)
			}
			if p.Name() != tt.want {
				t.Errorf("expected provider %q, got %q", tt.want, p.Name())
			}
		})
	}
}
