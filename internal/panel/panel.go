package panel

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed web/*
var content embed.FS

// Handler serves the map page and its assets. Unknown paths are 404.
//
// If dir names an existing directory the assets are read from disk, so the
// page can be edited without rebuilding; otherwise the embedded copy is used.
func Handler(dir string) http.Handler {
	files := http.FileServerFS(assets(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The page is tiny and changes with the binary; always revalidate.
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		files.ServeHTTP(w, r)
	})
}

func assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	web, err := fs.Sub(content, "web")
	if err != nil {
		// web/ is embedded at build time.
		panic("panel: embedded assets missing: " + err.Error())
	}
	return web
}
