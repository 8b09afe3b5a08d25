package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

// downloadWriteTimeout replaces the server write timeout for stored files.
const downloadWriteTimeout = 10 * time.Minute

// Files lists the upload directory for the gallery page.
func Files(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files, err := d.Service.Files()
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, toFileViews(files))
	}
}

// Storage reports disk usage of the upload directory.
func Storage(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := d.Service.Storage()
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, storageView{Total: u.Total, Used: u.Used, Available: u.Available})
	}
}

// Upload serves one stored file. Uploaded content is untrusted, so it runs
// sandboxed if a browser renders it.
func Upload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		files := d.Service.Uploads()
		if files == nil {
			writeError(w, r, d, domain.NotFound("file", chi.URLParam(r, "name")))
			return
		}

		f, err := files.Open(chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		defer utils.Close(f)

		info, err := f.Stat()
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(downloadWriteTimeout))
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "sandbox")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	}
}
