package preview

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// fakeTool is an in-memory Processor for pipeline tests.
type fakeTool struct {
	inspectOut string
	inspectErr error
	renderErr  error
	renderBody []byte
}

func (f *fakeTool) Name() string { return "fake" }

func (f *fakeTool) Inspect(ctx context.Context, path string) (string, error) {
	return f.inspectOut, f.inspectErr
}

func (f *fakeTool) Render(ctx context.Context, src, dst string, w, h int) error {
	if f.renderErr != nil {
		return f.renderErr
	}
	body := f.renderBody
	if body == nil {
		body = []byte("thumb-bytes")
	}
	return os.WriteFile(dst, body, 0644)
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	return len(entries)
}

func writeUpload(t *testing.T, dir string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, "upload.png")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path
}

func errType(t *testing.T, err error) ErrorType {
	t.Helper()
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *preview.Error, got %T: %v", err, err)
	}
	return perr.Type
}

func TestProcess_UploadedFile(t *testing.T) {
	dir := t.TempDir()
	srcBytes := []byte("png-source-bytes")
	upload := writeUpload(t, dir, srcBytes)

	tool := &fakeTool{inspectOut: "100x50 format=png"}
	p := New(Config{UploadDir: dir}, tool)

	result, err := p.Process(context.Background(), Request{UploadedPath: upload})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	wantThumb := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("thumb-bytes"))
	if result.ThumbnailURL != wantThumb {
		t.Errorf("thumbnailUrl = %q, want %q", result.ThumbnailURL, wantThumb)
	}

	wantOriginal := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(srcBytes)
	if result.OriginalImageURL != wantOriginal {
		t.Errorf("originalImageUrl = %q, want %q", result.OriginalImageURL, wantOriginal)
	}

	checks := map[string]string{
		"originalWidth":  "100",
		"originalHeight": "50",
		"originalSize":   "100×50",
		"aspectRatio":    "2.00",
		"format":         "png",
		"thumbnailSize":  "150×150",
	}
	for k, want := range checks {
		if got, _ := result.Metadata.Get(k); got != want {
			t.Errorf("metadata[%s] = %q, want %q", k, got, want)
		}
	}

	// The uploaded source and the rendered thumbnail are both gone.
	if _, err := os.Stat(upload); !os.IsNotExist(err) {
		t.Errorf("uploaded file not removed, stat err = %v", err)
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expected empty upload dir after request, found %d entries", n)
	}
}

func TestProcess_RemoteURL(t *testing.T) {
	body := []byte("remote-image-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	tool := &fakeTool{inspectOut: "640x480 format=jpeg"}
	p := New(Config{UploadDir: dir}, tool)

	result, err := p.Process(context.Background(), Request{RemoteURL: srv.URL + "/photo.jpg"})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	wantOriginal := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(body)
	if result.OriginalImageURL != wantOriginal {
		t.Errorf("originalImageUrl mismatch for downloaded source")
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expected empty upload dir after request, found %d entries", n)
	}
}

func TestProcess_MissingInput(t *testing.T) {
	dir := t.TempDir()
	p := New(Config{UploadDir: dir}, &fakeTool{})

	_, err := p.Process(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error for empty request")
	}
	if typ := errType(t, err); typ != ErrTypeMissingInput {
		t.Errorf("error type = %v, want ErrTypeMissingInput", typ)
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("missing input must not create files, found %d entries", n)
	}
}

func TestProcess_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	p := New(Config{UploadDir: dir}, &fakeTool{inspectOut: "10x10"})

	_, err := p.Process(context.Background(), Request{RemoteURL: srv.URL + "/missing.jpg"})
	if err == nil {
		t.Fatal("expected error for failed download")
	}
	if typ := errType(t, err); typ != ErrTypeDownload {
		t.Errorf("error type = %v, want ErrTypeDownload", typ)
	}
	if errors.Unwrap(err) == nil {
		t.Error("expected wrapped cause on download error")
	}
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expected empty upload dir after failed download, found %d entries", n)
	}
}

func TestProcess_RenderFailure(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, []byte("src"))

	tool := &fakeTool{inspectOut: "100x100", renderErr: errors.New("encoder exploded")}
	p := New(Config{UploadDir: dir}, tool)

	_, err := p.Process(context.Background(), Request{UploadedPath: upload})
	if err == nil {
		t.Fatal("expected error for failed render")
	}
	if typ := errType(t, err); typ != ErrTypeRender {
		t.Errorf("error type = %v, want ErrTypeRender", typ)
	}

	// Failure path still releases every request file.
	if n := countEntries(t, dir); n != 0 {
		t.Errorf("expected empty upload dir after failed render, found %d entries", n)
	}
}

func TestProcess_InspectFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, []byte("src"))

	tool := &fakeTool{inspectErr: errors.New("tool crashed")}
	p := New(Config{UploadDir: dir}, tool)

	result, err := p.Process(context.Background(), Request{UploadedPath: upload})
	if err != nil {
		t.Fatalf("metadata failure must not fail the request: %v", err)
	}

	if got, _ := result.Metadata.Get("dimensions"); got != "unknown" {
		t.Errorf("metadata[dimensions] = %q, want unknown", got)
	}
	if got, _ := result.Metadata.Get("thumbnailSize"); got != "150×150" {
		t.Errorf("metadata[thumbnailSize] = %q, want 150×150", got)
	}
	if result.OriginalImageURL != "" {
		t.Error("unknown dimensions must not inline the original image")
	}
	if result.ThumbnailURL == "" {
		t.Error("thumbnail must still be produced")
	}
}

func TestProcess_UnparsableInspectOutputDegrades(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, []byte("src"))

	tool := &fakeTool{inspectOut: "no dimensions anywhere"}
	p := New(Config{UploadDir: dir}, tool)

	result, err := p.Process(context.Background(), Request{UploadedPath: upload})
	if err != nil {
		t.Fatalf("unparsable metadata must not fail the request: %v", err)
	}
	if got, _ := result.Metadata.Get("dimensions"); got != "unknown" {
		t.Errorf("metadata[dimensions] = %q, want unknown", got)
	}
}

func TestProcess_UploadWinsOverURL(t *testing.T) {
	dir := t.TempDir()
	upload := writeUpload(t, dir, []byte("src"))

	p := New(Config{UploadDir: dir}, &fakeTool{inspectOut: "10x10"})

	// The URL is unroutable; success proves the upload was used.
	req := Request{UploadedPath: upload, RemoteURL: "http://127.0.0.1:1/never.jpg"}
	if _, err := p.Process(context.Background(), req); err != nil {
		t.Fatalf("expected upload to take precedence, got %v", err)
	}
}

func TestProcess_UploadedFileMissing(t *testing.T) {
	dir := t.TempDir()
	p := New(Config{UploadDir: dir}, &fakeTool{})

	_, err := p.Process(context.Background(), Request{UploadedPath: filepath.Join(dir, "vanished.png")})
	if err == nil {
		t.Fatal("expected error for missing uploaded file")
	}
	if typ := errType(t, err); typ != ErrTypeInternal {
		t.Errorf("error type = %v, want ErrTypeInternal", typ)
	}
}
