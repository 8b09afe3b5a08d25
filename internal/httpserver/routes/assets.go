package routes

import (
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/localdrop/internal/httpserver/deps"
)

func init() { Register(registerAssets) }

// registerAssets serves the stylesheets, scripts and images next to the pages.
func registerAssets(r chi.Router, d deps.Deps) {
	if d.StaticDir == "" {
		return
	}
	for _, dir := range []string{"css", "js", "img"} {
		prefix := "/" + dir + "/"
		fs := http.FileServer(http.Dir(filepath.Join(d.StaticDir, dir)))
		r.Handle(prefix+"*", http.StripPrefix(prefix, fs))
	}
}
