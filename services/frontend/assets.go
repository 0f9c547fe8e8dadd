package frontend

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticAssets embed.FS

// StaticHandler serves the embedded stylesheet; mount it under /static/.
func StaticHandler() http.Handler {
	subFS, err := fs.Sub(staticAssets, "static")
	if err != nil {
		panic(err)
	}
	files := http.FileServer(http.FS(subFS))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
