package media

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// DefaultMaxUploadSize bounds one image upload.
const DefaultMaxUploadSize = 10 << 20

// DefaultStageTTL is how long an unclaimed image survives before a sweep
// collects it.
const DefaultStageTTL = time.Hour

// defaultImageTypes is the content-type allowlist for uploads.
var defaultImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// Handler accepts multipart image uploads on POST and stages them.
// Responses use the same envelope shape as the auth gateway, so page code
// decodes everything one way.
type Handler struct {
	store        Store
	maxSize      int64
	allowedTypes map[string]bool
	logger       *slog.Logger
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMaxUploadSize overrides the upload size limit.
func WithMaxUploadSize(n int64) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxSize = n
		}
	}
}

// WithAllowedTypes replaces the content-type allowlist.
func WithAllowedTypes(types ...string) HandlerOption {
	return func(h *Handler) {
		h.allowedTypes = make(map[string]bool, len(types))
		for _, t := range types {
			h.allowedTypes[t] = true
		}
	}
}

// WithHandlerLogger sets the logger for upload failures.
func WithHandlerLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler builds the upload endpoint around a staging store.
func NewHandler(store Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:        store,
		maxSize:      DefaultMaxUploadSize,
		allowedTypes: defaultImageTypes,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type uploadEnvelope struct {
	Error   bool        `json:"error"`
	Code    int         `json:"code"`
	Message string      `json:"message,omitempty"`
	Data    *uploadData `json:"data,omitempty"`
}

type uploadData struct {
	ImageID string `json:"image_id"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.reject(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Cap the body before parsing so an oversized upload fails early
	// instead of filling the staging dir.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		h.reject(w, http.StatusBadRequest, "malformed upload")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.reject(w, http.StatusBadRequest, "no image provided")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !h.allowedTypes[contentType] {
		h.reject(w, http.StatusUnsupportedMediaType, "unsupported image type")
		return
	}

	id, err := h.store.Stage(r.Context(), Upload{
		Filename:     header.Filename,
		ContentType:  contentType,
		DeclaredSize: header.Size,
	}, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrTooLarge):
			h.reject(w, http.StatusRequestEntityTooLarge, "image too large")
		default:
			h.logger.Error("staging failed", "filename", header.Filename, "error", err)
			h.reject(w, http.StatusInternalServerError, "upload failed")
		}
		return
	}

	h.write(w, http.StatusOK, uploadEnvelope{
		Code: http.StatusOK,
		Data: &uploadData{ImageID: id},
	})
}

// Claim serves GET /api/media/{id}: it consumes the staged image and
// streams it out. For S3-backed staging with a public base URL the bytes
// still stream through here; the URL is a hint for clients that want it,
// carried in the Location header.
func (h *Handler) Claim(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.reject(w, http.StatusBadRequest, "missing image id")
		return
	}

	img, err := h.store.Claim(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.reject(w, http.StatusNotFound, "image not found")
			return
		}
		h.logger.Error("claim failed", "id", id, "error", err)
		h.reject(w, http.StatusInternalServerError, "claim failed")
		return
	}
	defer img.Close()

	w.Header().Set("Content-Type", img.ContentType)
	if img.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	}
	if img.Filename != "" {
		w.Header().Set("Content-Disposition", `inline; filename="`+img.Filename+`"`)
	}
	if img.URL != "" {
		w.Header().Set("Location", img.URL)
	}
	if _, err := io.Copy(w, img.Content); err != nil {
		h.logger.Warn("streaming claimed image failed", "id", id, "error", err)
	}
}

func (h *Handler) reject(w http.ResponseWriter, code int, msg string) {
	h.write(w, code, uploadEnvelope{Error: true, Code: code, Message: msg})
}

func (h *Handler) write(w http.ResponseWriter, code int, env uploadEnvelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(env)
}
