package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/image-preview-service/internal/imagetool"
	"github.com/fpang/image-preview-service/internal/logging"
	"github.com/fpang/image-preview-service/internal/preview"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// CLI flags
var (
	portFlag            int
	uploadDirFlag       string
	toolFlag            string
	maxInlinePixelsFlag int64
	downloadTimeoutFlag time.Duration
	toolTimeoutFlag     time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "preview-web",
	Short: "HTTP service for image thumbnails and metadata",
	Long: `Preview Web starts an HTTP server that turns an image (an uploaded file or
a remote URL) into a 150x150 JPEG thumbnail plus extracted metadata, returned
as data URIs in a single JSON response.

Examples:
  preview-web
  preview-web --port 9090
  preview-web --tool magick --upload-dir /var/tmp/preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVar(&uploadDirFlag, "upload-dir", "uploads", "Directory for request-scoped working files")
	rootCmd.Flags().StringVar(&toolFlag, "tool", "native", "Image tool provider: native or magick")
	rootCmd.Flags().Int64Var(&maxInlinePixelsFlag, "max-inline-pixels", preview.DefaultMaxInlinePixels,
		"Inline the original image when width*height is below this")
	rootCmd.Flags().DurationVar(&downloadTimeoutFlag, "download-timeout", 30*time.Second, "Bound for downloading a remote image")
	rootCmd.Flags().DurationVar(&toolTimeoutFlag, "tool-timeout", 20*time.Second, "Bound for a single image tool invocation")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyEnvFallbacks resolves PREVIEW_* environment variables for flags the
// user left at their defaults, so explicit flags always win over .env values.
func applyEnvFallbacks(cmd *cobra.Command) {
	if !cmd.Flags().Changed("port") {
		if p, err := strconv.Atoi(os.Getenv("PREVIEW_PORT")); err == nil && p > 0 {
			portFlag = p
		}
	}
	if !cmd.Flags().Changed("upload-dir") {
		if v := os.Getenv("PREVIEW_UPLOAD_DIR"); v != "" {
			uploadDirFlag = v
		}
	}
	if !cmd.Flags().Changed("tool") {
		if v := os.Getenv("PREVIEW_IMAGE_TOOL"); v != "" {
			toolFlag = v
		}
	}
	if !cmd.Flags().Changed("max-inline-pixels") {
		if v, err := strconv.ParseInt(os.Getenv("PREVIEW_MAX_INLINE_PIXELS"), 10, 64); err == nil && v > 0 {
			maxInlinePixelsFlag = v
		}
	}
}

func runMain(cmd *cobra.Command, args []string) {
	start := time.Now()

	// Best-effort .env for local development; real config comes from flags
	// and the environment.
	dotenvLoaded := godotenv.Load() == nil

	logging.Init()
	applyEnvFallbacks(cmd)

	tool, err := imagetool.New(toolFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid image tool")
	}
	if m, ok := tool.(*imagetool.Magick); ok {
		if err := m.CheckAvailable(); err != nil {
			log.Fatal().Err(err).Msg("Image tool unavailable")
		}
	}

	if err := os.MkdirAll(uploadDirFlag, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", uploadDirFlag).Msg("Failed to create upload directory")
	}

	pipeline := preview.New(preview.Config{
		UploadDir:       uploadDirFlag,
		MaxInlinePixels: maxInlinePixelsFlag,
		DownloadTimeout: downloadTimeoutFlag,
		ToolTimeout:     toolTimeoutFlag,
	}, tool)

	srv := newServer(pipeline, tool.Name(), uploadDirFlag)

	mux := http.NewServeMux()
	mux.HandleFunc("/thumbnail", srv.handleThumbnail)
	mux.HandleFunc("/healthz", srv.handleHealthz)

	// Wrap with logging, CORS for local dev, metrics, and gzip compression.
	handler := gzhttp.GzipHandler(withLogging(withCORS(withMetrics(mux))))

	logging.NewStartupLogger("preview-web").
		Version(version).
		Tool("imageTool", tool.Name()).
		Dir("uploadDir", uploadDirFlag).
		Feature("dotenv", dotenvLoaded).
		Config("maxInlinePixels", strconv.FormatInt(maxInlinePixelsFlag, 10)).
		Config("downloadTimeout", downloadTimeoutFlag.String()).
		Config("toolTimeout", toolTimeoutFlag.String()).
		InitDuration(time.Since(start)).
		Log()

	addr := fmt.Sprintf(":%d", portFlag)
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(ctx)
	}()

	log.Info().Int("port", portFlag).Str("tool", tool.Name()).Msg("Starting preview server")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
