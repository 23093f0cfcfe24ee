// Package web holds the HTML templates and static assets and the view engine that renders them.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"quill/internal/models"
)

//go:embed templates static
var content embed.FS

const (
	layoutName  = "base"
	templateDir = "templates"
)

// Engine renders a page template inside templates/base.html. It implements fiber.Views.
type Engine struct {
	fsys      fs.FS
	mediaRoot string

	mu    sync.RWMutex
	pages map[string]*template.Template
}

// NewEngine returns an engine over the embedded templates. mediaRoot is used to find
// thumbnails and may be empty.
func NewEngine(mediaRoot string) *Engine {
	return NewEngineFS(content, mediaRoot)
}

// NewEngineFS returns an engine reading templates/ from fsys.
func NewEngineFS(fsys fs.FS, mediaRoot string) *Engine {
	return &Engine{fsys: fsys, mediaRoot: mediaRoot}
}

// Static returns the embedded static assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Load parses the layout and partials once, then every page on top of a clone of them.
func (e *Engine) Load() error {
	base, err := template.New(layoutName).Funcs(e.funcs()).ParseFS(e.fsys,
		templateDir+"/base.html",
		templateDir+"/includes/*.html",
	)
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = fs.WalkDir(e.fsys, templateDir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		name := strings.TrimPrefix(p, templateDir+"/")
		if name == "base.html" || strings.HasPrefix(name, "includes/") {
			return nil
		}
		page, err := base.Clone()
		if err != nil {
			return err
		}
		if _, err := page.ParseFS(e.fsys, p); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = page
		return nil
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.pages = pages
	e.mu.Unlock()
	return nil
}

// Render executes the named page, for example "posts/index.html".
func (e *Engine) Render(w io.Writer, name string, binding interface{}, _ ...string) error {
	e.mu.RLock()
	loaded := e.pages != nil
	e.mu.RUnlock()
	if !loaded {
		if err := e.Load(); err != nil {
			return err
		}
	}

	e.mu.RLock()
	page, ok := e.pages[name]
	e.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.ExecuteTemplate(w, layoutName, binding)
}

// Has reports whether a page template exists.
func (e *Engine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.pages[name]
	return ok
}

func (e *Engine) funcs() template.FuncMap {
	return template.FuncMap{
		"media":     mediaURL,
		"thumbnail": e.thumbnailURL,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006")
		},
		"datetime": func(t time.Time) string {
			return t.Format("02 Jan 2006 15:04")
		},
		"linebreaks": func(text string) template.HTML {
			escaped := template.HTMLEscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
			return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")) // #nosec G203: input is escaped above
		},
		"truncate": func(n int, text string) string {
			if r := []rune(text); len(r) > n {
				return string(r[:n]) + "…"
			}
			return text
		},
		"pageURL": func(n int) string {
			return "?page=" + strconv.Itoa(n)
		},
		"pathEscape": url.PathEscape,
		"joinErrors": func(errs []string) string {
			return strings.Join(errs, " ")
		},
	}
}

func mediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + strings.TrimPrefix(rel, "/")
}

// thumbnailURL prefers the generated webp thumbnail and falls back to the original upload.
func (e *Engine) thumbnailURL(post *models.Post) string {
	if post == nil || !post.HasImage() {
		return ""
	}
	if e.mediaRoot != "" {
		thumb := post.ThumbnailPath()
		if _, err := os.Stat(filepath.Join(e.mediaRoot, filepath.FromSlash(thumb))); err == nil {
			return mediaURL(thumb)
		}
	}
	return mediaURL(post.Image)
}
