package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/seascape/internal/classify"
	"github.com/Brownie44l1/seascape/internal/handlers"
	"github.com/Brownie44l1/seascape/internal/log"
	"github.com/Brownie44l1/seascape/internal/model"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Init(getenv("LOG_LEVEL", "info"), os.Getenv("LOG_FILE"))
	defer log.Sync()

	// Get the project root directory
	execPath, err := os.Getwd()
	if err != nil {
		log.Fatal("failed to get working directory", "error", err)
	}

	// If running from cmd/server, go up two levels
	if filepath.Base(execPath) == "server" {
		execPath = filepath.Join(execPath, "../..")
	}

	configPath := getenv("MODEL_CONFIG", filepath.Join(execPath, "models", "model_metadata.json"))
	log.Info("loading model config", "path", configPath)

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		log.Fatal("invalid model config", "error", err)
	}

	runtime, err := model.NewRuntime(cfg, os.Getenv("ORT_LIB_PATH"))
	if err != nil {
		log.Fatal("failed to initialize model runtime", "error", err)
	}
	defer func() {
		if err := runtime.Close(); err != nil {
			log.Warn("failed to destroy ONNX environment", "error", err)
		}
	}()

	classifier := &classify.Classifier{
		Loader: runtime,
		Labels: cfg.Classes,
		Size:   cfg.ImageSize,
		Filter: cfg.Filter(),
	}

	mux := http.NewServeMux()
	handlers.NewHandler(classifier).Routes(mux)

	port := getenv("PORT", "8080")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown failed", "error", err)
		}
	}()

	log.Info("server starting",
		"port", port,
		"model", cfg.ModelPath,
		"classes", cfg.Classes,
		"image_size", cfg.ImageSize,
		"resample", cfg.Resample,
	)
	log.Info("endpoints",
		"health", "GET /health",
		"labels", "GET /labels",
		"predict", "POST /predict (raw tensor)",
		"predict_image", "POST /predict/image (multipart field 'image')",
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
	}
}
