package adapthttp

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"secrets/internal/domain"
)

// View names a page the renderer knows how to produce.
type View string

const (
	ViewHome     View = "home"
	ViewLogin    View = "login"
	ViewRegister View = "register"
	ViewSecrets  View = "secrets"
	ViewSubmit   View = "submit"
)

var allViews = []View{ViewHome, ViewLogin, ViewRegister, ViewSecrets, ViewSubmit}

// ViewData is everything a page may display. Users is only set for the
// secrets view.
type ViewData struct {
	User      *domain.User
	Users     []domain.User
	Message   string
	Failed    bool
	Providers []string
}

// Renderer produces markup for a view. It makes no decisions.
type Renderer interface {
	Render(w io.Writer, view View, data ViewData) error
}

//go:embed templates/*.html
var templateFS embed.FS

// TemplateRenderer renders the embedded html/template pages.
type TemplateRenderer struct {
	views map[View]*template.Template
}

// NewTemplateRenderer parses the embedded templates.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	views := make(map[View]*template.Template, len(allViews))
	for _, v := range allViews {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+string(v)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", v, err)
		}
		views[v] = t
	}
	return &TemplateRenderer{views: views}, nil
}

func (r *TemplateRenderer) Render(w io.Writer, view View, data ViewData) error {
	t, ok := r.views[view]
	if !ok {
		return fmt.Errorf("unknown view %q", view)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
