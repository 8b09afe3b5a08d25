package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/service"
)

const (
	// uploadReadTimeout replaces the server read timeout for POST /item.
	uploadReadTimeout = 10 * time.Minute
	maxTextBytes      = 1 << 20
)

type postResponse struct {
	Message string     `json:"message"`
	Items   []itemView `json:"items"`
}

type clearResponse struct {
	Message string `json:"message"`
	Removed int    `json:"removed"`
}

func ListItems(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toItemViews(d.Service.ListItems()))
	}
}

// PostItem accepts a multipart form with optional "text" and "file" fields.
// Plain forms and JSON bodies with a "text" field are accepted too.
func PostItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = http.NewResponseController(w).SetReadDeadline(time.Now().Add(uploadReadTimeout))
		r.Body = http.MaxBytesReader(w, r.Body, d.MaxUploadBytes)

		in := service.PostInput{DeviceID: r.UserAgent()}
		var err error

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		switch mediaType {
		case "multipart/form-data":
			err = readMultipart(r, d, &in)
		case "application/json":
			err = readJSON(r, &in)
		default:
			if err = r.ParseForm(); err == nil {
				in.Text = r.PostForm.Get("text")
			}
		}
		if err != nil {
			if in.File != nil {
				discardUpload(d, in.File)
			}
			writeError(w, r, d, uploadError(err, d.MaxUploadBytes))
			return
		}

		posted, err := d.Service.PostItem(r.Context(), in)
		if err != nil {
			if in.File != nil {
				discardUpload(d, in.File)
			}
			writeError(w, r, d, err)
			return
		}

		writeJSON(w, http.StatusCreated, postResponse{
			Message: "item added",
			Items:   toItemViews(posted),
		})
	}
}

// readMultipart streams the parts so a large file goes straight to the
// upload store instead of a temporary copy.
func readMultipart(r *http.Request, d deps.Deps, in *service.PostInput) error {
	mr, err := r.MultipartReader()
	if err != nil {
		return domain.InvalidInput("malformed multipart body")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch part.FormName() {
		case "text":
			b, err := io.ReadAll(io.LimitReader(part, maxTextBytes+1))
			if err != nil {
				return err
			}
			if len(b) > maxTextBytes {
				return domain.PayloadTooLarge(maxTextBytes)
			}
			in.Text = string(b)
		case "file":
			if part.FileName() == "" || in.File != nil {
				break
			}
			payload, err := d.Service.StoreUpload(part, part.FileName(), partMimeType(part))
			if err != nil {
				return err
			}
			in.File = payload
		}
		part.Close()
	}
}

func readJSON(r *http.Request, in *service.PostInput) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return domain.InvalidInput("malformed JSON body")
	}
	in.Text = body.Text
	return nil
}

func partMimeType(part *multipart.Part) string {
	if ct := part.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(part.FileName()))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// uploadError turns a body size overflow into PayloadTooLarge.
func uploadError(err error, limit int64) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return domain.PayloadTooLarge(limit)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("read request body: %w", err)
}

func discardUpload(d deps.Deps, f *domain.FilePayload) {
	files := d.Service.Uploads()
	if files == nil {
		return
	}
	if err := files.Remove(f.StoredName); err != nil {
		d.Logger.Warn("failed to discard upload",
			logger.String("file", f.StoredName),
			logger.Error(err))
	}
}

func DeleteItem(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Service.DeleteItem(r.Context(), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "item deleted"})
	}
}

func ClearItems(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := d.Service.ClearAll(r.Context())
		writeJSON(w, http.StatusOK, clearResponse{Message: "all items deleted", Removed: n})
	}
}
