package media_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pixelvault/admin/pkg/media"
)

// stubStore records the last staged upload.
type stubStore struct {
	lastUpload media.Upload
	lastBody   string
	stageErr   error
	claimed    *media.Image
}

func (s *stubStore) Stage(ctx context.Context, up media.Upload, r io.Reader) (string, error) {
	if s.stageErr != nil {
		return "", s.stageErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.lastUpload = up
	s.lastBody = string(body)
	return "img-1", nil
}

func (s *stubStore) Claim(ctx context.Context, id string) (*media.Image, error) {
	if s.claimed == nil || s.claimed.ID != id {
		return nil, media.ErrNotFound
	}
	img := s.claimed
	s.claimed = nil
	return img, nil
}

func (s *stubStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	return 0, nil
}

func imageForm(t *testing.T, field, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	io.WriteString(part, content)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func postUpload(h http.Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/media", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeUpload(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestUploadStagesImage(t *testing.T) {
	store := &stubStore{}
	h := media.NewHandler(store)

	body, ct := imageForm(t, "image", "cat.png", "image/png", "png-bytes")
	rec := postUpload(h, body, ct)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	out := decodeUpload(t, rec)
	data, _ := out["data"].(map[string]any)
	if data["image_id"] != "img-1" {
		t.Errorf("image_id = %v", data["image_id"])
	}
	if store.lastUpload.Filename != "cat.png" || store.lastUpload.ContentType != "image/png" {
		t.Errorf("staged upload = %+v", store.lastUpload)
	}
	if store.lastBody != "png-bytes" {
		t.Errorf("staged body = %q", store.lastBody)
	}
}

func TestClaimServesAndConsumes(t *testing.T) {
	store := &stubStore{claimed: &media.Image{
		ID:          "img-1",
		Filename:    "cat.png",
		ContentType: "image/png",
		Size:        int64(len("png-bytes")),
		Content:     io.NopCloser(strings.NewReader("png-bytes")),
	}}
	h := media.NewHandler(store)

	r := chi.NewRouter()
	r.Get("/api/media/{id}", h.Claim)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/img-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("content type = %q", got)
	}
	if rec.Body.String() != "png-bytes" {
		t.Errorf("body = %q", rec.Body.String())
	}

	// The claim consumed the staged image.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/media/img-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("second claim status = %d, want 404", rec.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	t.Run("wrong method", func(t *testing.T) {
		h := media.NewHandler(&stubStore{})
		req := httptest.NewRequest(http.MethodGet, "/api/media", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("missing image field", func(t *testing.T) {
		h := media.NewHandler(&stubStore{})
		body, ct := imageForm(t, "document", "cat.png", "image/png", "png-bytes")
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("disallowed content type", func(t *testing.T) {
		h := media.NewHandler(&stubStore{})
		body, ct := imageForm(t, "image", "run.exe", "application/octet-stream", "MZ")
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("body over limit", func(t *testing.T) {
		h := media.NewHandler(&stubStore{}, media.WithMaxUploadSize(64))
		body, ct := imageForm(t, "image", "big.png", "image/png", strings.Repeat("x", 4096))
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("store reports too large", func(t *testing.T) {
		h := media.NewHandler(&stubStore{stageErr: media.ErrTooLarge})
		body, ct := imageForm(t, "image", "big.png", "image/png", "png-bytes")
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("store failure is a 500", func(t *testing.T) {
		h := media.NewHandler(&stubStore{stageErr: errors.New("disk full")})
		body, ct := imageForm(t, "image", "cat.png", "image/png", "png-bytes")
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", rec.Code)
		}
		out := decodeUpload(t, rec)
		if out["error"] != true {
			t.Errorf("envelope error flag = %v", out["error"])
		}
	})

	t.Run("custom allowlist", func(t *testing.T) {
		h := media.NewHandler(&stubStore{}, media.WithAllowedTypes("image/avif"))
		body, ct := imageForm(t, "image", "cat.png", "image/png", "png-bytes")
		rec := postUpload(h, body, ct)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d", rec.Code)
		}
	})
}
