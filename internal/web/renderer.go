// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"

	"github.com/redmonkez12/go-auth-verify/internal/user"
	"github.com/redmonkez12/go-auth-verify/templates"
)

const (
	PageHome   = "home"
	PageSignup = "signup"
	PageLogin  = "login"
)

// PageData is passed to every page template.
type PageData struct {
	Title string
	User  *user.User
}

// UserJSON is the public projection of the current user.
func (d PageData) UserJSON() string {
	if d.User == nil {
		return ""
	}
	b, err := json.Marshal(d.User)
	if err != nil {
		return ""
	}
	return string(b)
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{PageHome, PageSignup, PageLogin} {
		tmpl, err := template.ParseFS(templates.PagesFS, "pages/layout.html", "pages/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data PageData) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("render page %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
