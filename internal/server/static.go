package server

import (
	"embed"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// staticHandler serves the embedded assets under /static/.
func staticHandler() http.Handler {
	return http.FileServer(http.FS(staticFS))
}
