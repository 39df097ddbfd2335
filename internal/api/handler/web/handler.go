// Package web renders the HTML pages of the dashboard.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"github.com/newthinker/cryptodash/internal/app"
	"github.com/newthinker/cryptodash/internal/core"
	"go.uber.org/zap"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists the page templates, each rendered inside layout.html.
var pages = []string{"catalog.html", "live.html"}

// DataProvider is what the pages read from app.App.
type DataProvider interface {
	Coins(ctx context.Context, query string) ([]app.CoinView, error)
	SelectedCoins(ctx context.Context) ([]core.Coin, error)
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds one template set per page: layout.html plus the page
	pageTemplates map[string]*template.Template
	data          DataProvider
	logger        *zap.Logger
}

// NewHandler creates a new web handler with templates loaded from the given directory.
// If templatesDir is empty, it falls back to embedded templates.
func NewHandler(templatesDir string, data DataProvider, logger *zap.Logger) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(templatesDir)
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, data, logger)
}

// NewHandlerWithFS creates a new web handler using a custom filesystem.
func NewHandlerWithFS(fsys fs.FS, data DataProvider, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pageTemplates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}

	return &Handler{pageTemplates: pageTemplates, data: data, logger: logger}, nil
}

var funcs = template.FuncMap{
	"usd":   func(v float64) string { return fmt.Sprintf("$%.2f", v) },
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering page failed", zap.String("page", page), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		// This should never happen with valid embed directive
		return templateFS
	}
	return subFS
}
