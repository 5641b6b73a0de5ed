package rest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FrontendHandler serves a built single page application. Unknown paths fall
// back to the index file so client-side routes keep working on reload.
type FrontendHandler struct {
	staticPath string
	indexPath  string
}

func NewFrontendHandler(staticPath, indexPath string) FrontendHandler {
	return FrontendHandler{staticPath: staticPath, indexPath: indexPath}
}

func (h FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))

	fi, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
}
