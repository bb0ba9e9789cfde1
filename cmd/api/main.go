package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceliveness/internal/api"
	"github.com/your-org/faceliveness/internal/api/ws"
	"github.com/your-org/faceliveness/internal/config"
	"github.com/your-org/faceliveness/internal/modelsource"
	"github.com/your-org/faceliveness/internal/observability"
	"github.com/your-org/faceliveness/internal/queue"
	"github.com/your-org/faceliveness/internal/storage"
	"github.com/your-org/faceliveness/internal/vision"
	"github.com/your-org/faceliveness/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting face-liveness API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Start verdict consumer to broadcast events via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create verdict consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeVerdicts(ctx, "api-verdicts", func(ctx context.Context, msg jetstream.Msg) error {
		var evt dto.WSEvent
		if err := json.Unmarshal(msg.Data(), &evt); err != nil {
			return err
		}
		hub.BroadcastVerdict(&evt)
		return nil
	})
	if err != nil {
		slog.Warn("start verdict consumer", "error", err)
	}

	// Initialize ONNX Runtime and the face-liveness pipeline.
	var pipeline *vision.Pipeline

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed — verify/search endpoints will be unavailable", "error", err)
	} else {
		detCfg := vision.DefaultDetectorConfig()
		detCfg.SkipOcclusionCheck = cfg.Vision.SkipOcclusionCheck
		detCfg.SkipAlbedoCheck = cfg.Vision.SkipAlbedoCheck
		detCfg.SkipFaceCropping = cfg.Vision.SkipFaceCropping
		if cfg.Vision.LivenessThreshold > 0 {
			detCfg.LivenessThreshold = cfg.Vision.LivenessThreshold
		}
		detCfg.LivenessModelWeights = cfg.Vision.Weights()
		if cfg.Vision.LivenessIterations > 0 {
			detCfg.LivenessIterations = cfg.Vision.LivenessIterations
		}
		if cfg.Vision.OcclusionThreshold > 0 {
			detCfg.OcclusionThreshold = cfg.Vision.OcclusionThreshold
		}
		if cfg.Vision.OcclusionIterations > 0 {
			detCfg.OcclusionIterations = cfg.Vision.OcclusionIterations
		}
		if cfg.Vision.CosineThreshold > 0 {
			detCfg.CosineThreshold = cfg.Vision.CosineThreshold
		}
		if cfg.Vision.SharpnessThreshold > 0 {
			detCfg.SharpnessThreshold = cfg.Vision.SharpnessThreshold
		}

		src := modelsource.NewDirectory(cfg.Vision.ModelsDir)
		keys := modelsource.NewFileKeySource(cfg.Vision.KeyPath)

		p, err := vision.NewPipeline(detCfg, src, keys)
		if err != nil {
			slog.Warn("vision pipeline init failed — verify/search endpoints will be unavailable", "error", err)
		} else {
			pipeline = p
			defer pipeline.Close()
			defer ort.DestroyEnvironment()
			slog.Info("vision pipeline ready")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:   cfg.Server.APIKey,
		DB:       db,
		MinIO:    minioStore,
		Producer: producer,
		Hub:      hub,
		Pipeline: pipeline,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
