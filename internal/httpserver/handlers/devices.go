package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/domain"
	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
)

const maxRenameBody = 4 << 10

type renameRequest struct {
	Name string `json:"name"`
}

func ListDevices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, toDeviceViews(d.Service.ListDevices()))
	}
}

func RenameDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deviceIDParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		var req renameRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenameBody)).Decode(&req); err != nil {
			writeError(w, r, d, domain.InvalidInput("body must be a JSON object with a name"))
			return
		}

		rec, err := d.Service.RenameDevice(r.Context(), id, req.Name)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, toDeviceView(rec))
	}
}

func DeleteDevice(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deviceIDParam(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}

		if _, err := d.Service.DeleteDevice(r.Context(), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "device deleted"})
	}
}

// deviceIDParam decodes the {id} segment. Device ids are user agents and
// contain slashes, so clients send them path-escaped; chi then matches on
// the raw path and hands the segment over still escaped.
func deviceIDParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if r.URL.RawPath == "" {
		return raw, nil
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", domain.InvalidInput("malformed device id")
	}
	return id, nil
}
