package server

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

//go:embed static/*
var staticFiles embed.FS

var errAssetNotFound = errors.New("asset not found")

// asset is an embedded static file with its response headers precomputed.
type asset struct {
	data        []byte
	contentType string
	etag        string
}

// assets indexes the embedded static tree by request path, e.g. "css/app.css".
type assets map[string]asset

func loadAssets() (assets, error) {
	root, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("[loadAssets] static tree: %w", err)
	}
	out := assets{}
	err = fs.WalkDir(root, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(root, name)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		out[name] = asset{
			data:        data,
			contentType: contentTypeFor(name, data),
			etag:        `"` + hex.EncodeToString(sum[:8]) + `"`,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("[loadAssets] %w", err)
	}
	return out, nil
}

func contentTypeFor(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if strings.HasPrefix(ctype, "text/") && !strings.Contains(strings.ToLower(ctype), "charset=") {
		ctype += "; charset=utf-8"
	}
	return ctype
}

// serve writes the named asset, answering 304 when the browser already holds it.
func (a assets) serve(w http.ResponseWriter, r *http.Request, name string) error {
	f, ok := a[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, errAssetNotFound)
	}
	w.Header().Set("ETag", f.etag)
	if match := r.Header.Get("If-None-Match"); match != "" && match == f.etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set("Content-Type", f.contentType)
	if _, err := w.Write(f.data); err != nil {
		return fmt.Errorf("failed to write %s content: %w", name, err)
	}
	return nil
}
