package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"bookworm/internal/auth"
	"bookworm/internal/entity"
	"bookworm/internal/format"
	"bookworm/internal/httpx"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"currency":    format.Currency,
	"date":        format.Date,
	"datetime":    format.DateTime,
	"truncate":    format.Truncate,
	"statusLabel": format.StatusLabel,
	"statusClass": format.StatusClass,
	"initial":     format.Initial,
	"plural":      format.Plural,
	"money":       func(m entity.Money) float64 { return m.Float() },
	"add":         func(a, b int) int { return a + b },
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}

// Renderer holds one template set per page, each built on the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		name := path.Base(file)
		if name == "layout.html" {
			continue
		}
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[strings.TrimSuffix(name, ".html")] = t
	}
	return &Renderer{pages: pages}, nil
}

// Page is the data every template receives.
type Page struct {
	Title     string
	Viewer    auth.Viewer
	CartCount int
	Flash     *Flash
	Theme     string
	Path      string
	Data      any
}

func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// render builds the common page data and writes the named template.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	v := auth.ViewerFrom(r.Context())
	page := Page{
		Title:  title,
		Viewer: v,
		Theme:  v.Theme,
		Path:   r.URL.Path,
		Data:   data,
	}
	if page.Theme == "" {
		page.Theme = auth.ThemeLight
	}
	if f, ok := readFlash(w, r); ok {
		page.Flash = &f
	}
	if v.LoggedIn && v.UserID() > 0 {
		if held, ok := data.(cartHolder); ok {
			c := held.heldCart()
			page.CartCount = c.ItemCount()
		} else {
			page.CartCount = h.cartCount(r, v)
		}
	}
	if err := h.pages.Render(w, status, name, page); err != nil {
		slog.Error("failed to render page",
			slog.String("op", "web.render"),
			slog.String("template", name),
			slog.String("request_id", httpx.RequestIDFrom(r)),
			slog.String("err", err.Error()),
		)
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
	}
}

// cartHolder is page data that already carries the viewer's cart, so the
// header badge needs no second load.
type cartHolder interface {
	heldCart() entity.Cart
}

func (h *Handler) cartCount(r *http.Request, v auth.Viewer) int {
	c, err := h.carts.Load(v.APIContext(r.Context()), v.UserID())
	if err != nil {
		slog.Debug("cart badge unavailable", slog.String("request_id", httpx.RequestIDFrom(r)), slog.String("err", err.Error()))
		return 0
	}
	return c.ItemCount()
}

// ErrorData feeds error.html.
type ErrorData struct {
	Status   int
	Message  string
	RetryURL string
}

// renderError shows message with a "Try again" link back to the page.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	retry := ""
	if r.Method == http.MethodGet {
		retry = r.URL.RequestURI()
	}
	h.render(w, r, status, "error", http.StatusText(status), ErrorData{
		Status:   status,
		Message:  message,
		RetryURL: retry,
	})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "error", "Page not found", ErrorData{
		Status:  http.StatusNotFound,
		Message: "The page you are looking for does not exist.",
	})
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusForbidden, "error", "Forbidden", ErrorData{
		Status:  http.StatusForbidden,
		Message: "You do not have access to this page.",
	})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.")
}

// logError records a failed call at its call site.
func logError(r *http.Request, op string, err error) {
	slog.Error("request failed",
		slog.String("op", op),
		slog.String("request_id", httpx.RequestIDFrom(r)),
		slog.String("user_id", httpx.UserIDFrom(r)),
		slog.String("err", err.Error()),
	)
}
