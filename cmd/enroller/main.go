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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/faceliveness/internal/config"
	"github.com/your-org/faceliveness/internal/models"
	"github.com/your-org/faceliveness/internal/modelsource"
	"github.com/your-org/faceliveness/internal/observability"
	"github.com/your-org/faceliveness/internal/queue"
	"github.com/your-org/faceliveness/internal/storage"
	"github.com/your-org/faceliveness/internal/vision"
	"github.com/your-org/faceliveness/pkg/dto"
)

// cmd/enroller drains the ENROLL queue and runs the same detect_liveness
// and embedding pipeline as the API's synchronous /v1/persons/:id/faces
// route, without holding an HTTP request open.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting face-liveness enroller",
		"workers", cfg.Vision.EnrollWorkerCount,
		"cpu_cores", runtime.NumCPU(),
	)

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Error("init onnx runtime", "error", err)
		os.Exit(1)
	}
	defer ort.DestroyEnvironment()

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}

	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

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

	pipeline, err := vision.NewPipeline(detCfg, src, keys)
	if err != nil {
		slog.Error("init vision pipeline", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	slog.Info("vision pipeline initialized")

	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &enrollWorker{db: db, minio: minioStore, producer: producer, pipeline: pipeline}

	err = consumer.ConsumeEnrollTasks(ctx, "enroll-workers", w.handle, cfg.Vision.EnrollWorkerCount)
	if err != nil {
		slog.Error("start enroll consumer", "error", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		slog.Info("enroller metrics listening", "addr", ":8082")
		if err := http.ListenAndServe(":8082", mux); err != nil {
			slog.Error("metrics server error", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				depth, err := producer.QueueDepth(ctx)
				if err == nil {
					observability.EnrollQueueDepth.Set(float64(depth))
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down enroller...")
	cancel()
	time.Sleep(2 * time.Second)
	slog.Info("enroller stopped")
}

// enrollWorker processes one EnrollTask per handler invocation: load the
// source image from object storage, run detect_liveness, and on a Live
// verdict attach the embedding to the person.
type enrollWorker struct {
	db       *storage.PostgresStore
	minio    *storage.MinIOStore
	producer *queue.Producer
	pipeline *vision.Pipeline
}

func (w *enrollWorker) handle(ctx context.Context, msg jetstream.Msg) error {
	var task models.EnrollTask
	if err := json.Unmarshal(msg.Data(), &task); err != nil {
		slog.Error("unmarshal enroll task", "error", err)
		return nil // malformed payload, don't retry
	}

	if err := w.db.UpdateEnrollTaskStatus(ctx, task.ID, models.EnrollStatusProcessing, ""); err != nil {
		slog.Warn("update enroll task status", "task", task.ID, "error", err)
	}

	if err := w.process(ctx, &task); err != nil {
		_ = w.db.UpdateEnrollTaskStatus(ctx, task.ID, models.EnrollStatusFailed, err.Error())
		observability.EnrollmentsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("process enroll task %s: %w", task.ID, err)
	}

	_ = w.db.UpdateEnrollTaskStatus(ctx, task.ID, models.EnrollStatusDone, "")
	return nil
}

func (w *enrollWorker) process(ctx context.Context, task *models.EnrollTask) error {
	data, err := w.minio.GetObject(ctx, task.ImageKey)
	if err != nil {
		return fmt.Errorf("fetch source image: %w", err)
	}

	im, err := vision.DecodeImage(data)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	verdict, err := w.pipeline.DetectLiveness(ctx, im)
	if err != nil {
		return fmt.Errorf("detect liveness: %w", err)
	}
	observability.VerdictsTotal.WithLabelValues(verdict.Prediction).Inc()

	if w.producer != nil {
		_ = w.producer.PublishVerdict(ctx, dto.WSEvent{
			Type: "verdict",
			Data: dto.VerdictEventResponse{
				PersonID:      &task.PersonID,
				Prediction:    verdict.Prediction,
				Confidence:    verdict.Confidence,
				FailureReason: verdict.FailureReason,
				ImageURL:      task.ImageKey,
			},
		})
	}

	if verdict.Prediction != "Live" {
		observability.EnrollmentsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("liveness check failed: %s", verdict.FailureReason)
	}

	embedding, _, err := w.pipeline.EmbedImage(ctx, im)
	if err != nil {
		return fmt.Errorf("extract embedding: %w", err)
	}

	if _, err := w.db.AddFaceEmbedding(ctx, task.PersonID, []float32(embedding), float32(verdict.Confidence), task.ImageKey); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	observability.EnrollmentsTotal.WithLabelValues("stored").Inc()

	return nil
}

// getONNXLibPath returns the ONNX Runtime shared library path based on
// the operating system.
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
