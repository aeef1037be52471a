package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Brownie44l1/seascape/internal/classify"
	"github.com/Brownie44l1/seascape/internal/log"
	"github.com/Brownie44l1/seascape/internal/model"
)

const (
	// maxUploadSize bounds multipart image uploads.
	maxUploadSize = 10 << 20
	// maxTensorBodySize bounds /predict JSON bodies.
	maxTensorBodySize = 1 << 20
)

type Handler struct {
	classifier *classify.Classifier
}

func NewHandler(classifier *classify.Classifier) *Handler {
	return &Handler{
		classifier: classifier,
	}
}

// Routes registers every endpoint on mux behind the CORS middleware.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/health", EnableCORS(h.Health))
	mux.HandleFunc("/labels", EnableCORS(h.Labels))
	mux.HandleFunc("/predict", EnableCORS(h.Predict))
	mux.HandleFunc("/predict/image", EnableCORS(h.PredictFromImage))
}

// EnableCORS allows browser clients on any origin.
func EnableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Labels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, model.LabelsResponse{
		Classes:   h.classifier.Labels,
		ImageSize: h.classifier.Size,
	})
}

// Predict classifies a tensor that the client already preprocessed.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := requestLogger(w)

	r.Body = http.MaxBytesReader(w, r.Body, maxTensorBodySize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req model.PredictionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	t, err := classify.NewTensor(h.classifier.Size, req.Image)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	result, err := h.classifier.ClassifyTensor(r.Context(), t)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	logger.Infow("prediction", "class", result.Class, "confidence", result.Confidence)
	writeJSON(w, http.StatusOK, result)
}

// PredictFromImage classifies an uploaded image file sent in the "image" form field.
func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	logger := requestLogger(w)

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Upload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "No image file provided. Use 'image' as the form field name", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, format, err := classify.Decode(file)
	if err != nil {
		logger.Infow("rejected upload", "file", header.Filename, "error", err)
		http.Error(w, "Invalid image. Supported: JPEG, PNG, GIF, BMP, TIFF, WebP up to 50 megapixels", http.StatusBadRequest)
		return
	}

	logger.Debugw("received image",
		"file", header.Filename,
		"bytes", header.Size,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy(),
	)

	result, err := h.classifier.Classify(r.Context(), img)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	logger.Infow("prediction", "file", header.Filename, "class", result.Class, "confidence", result.Confidence)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, classify.ErrInvalidInput), errors.Is(err, classify.ErrEmptyInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debugw("request abandoned", "error", err)
		http.Error(w, "Request canceled", http.StatusRequestTimeout)
	default:
		logger.Errorw("prediction failed", "error", err)
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
	}
}

func requestLogger(w http.ResponseWriter) *zap.SugaredLogger {
	id := uuid.NewString()
	w.Header().Set("X-Request-ID", id)
	return log.With("request_id", id)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to write response", "error", err)
	}
}
