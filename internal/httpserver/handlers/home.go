package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
	"github.com/MrSnakeDoc/localdrop/internal/logger"
	"github.com/MrSnakeDoc/localdrop/internal/utils"
)

type identityResponse struct {
	Device deviceView `json:"device"`
	Admin  bool       `json:"admin"`
}

// Home registers the calling device and serves the admin page to the host
// machine and the user page to everyone else. Without the page on disk it
// answers with the caller's identity as JSON.
func Home(d deps.Deps) http.HandlerFunc {
	admins := utils.NewIPMatcher(d.AdminCIDRS)

	return func(w http.ResponseWriter, r *http.Request) {
		rec := d.Service.Identify(r.Context(), r.UserAgent())
		admin := admins.Allow(utils.ClientIP(r, d.TrustProxy))

		page := "index.html"
		if admin {
			page = "admin.html"
		}

		if d.StaticDir != "" {
			served, err := servePage(w, r, filepath.Join(d.StaticDir, page))
			if served {
				return
			}
			if err != nil {
				d.Logger.Warn("failed to serve page",
					logger.String("page", page),
					logger.Error(err))
			}
		}

		writeJSON(w, http.StatusOK, identityResponse{Device: toDeviceView(rec), Admin: admin})
	}
}

// servePage reports false with a nil error when the page does not exist.
func servePage(w http.ResponseWriter, r *http.Request, path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer utils.Close(f)

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true, nil
}
