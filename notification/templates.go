package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type ContactInternalData struct {
	Name             string
	Email            string
	Phone            string
	Subject          string
	Message          string
	Appointment      string
	PreferredContact string
	UrgencyLabel     string
	UrgencyColor     string
	SubmittedAt      string
}

type ContactClientData struct {
	Name        string
	Subject     string
	Message     string
	Appointment string
}

type WelcomeData struct {
	Name      string
	Interests []string
	Message   string
}

// Renderer holds the parsed email templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

func MustNewRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) RenderContactInternal(data ContactInternalData) ([]byte, error) {
	return r.render("contact_internal.html", data)
}

func (r *Renderer) RenderContactClient(data ContactClientData) ([]byte, error) {
	return r.render("contact_client.html", data)
}

func (r *Renderer) RenderWelcome(data WelcomeData) ([]byte, error) {
	return r.render("waiting_list_welcome.html", data)
}

func (r *Renderer) render(name string, data any) ([]byte, error) {
	var body bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&body, name, data); err != nil {
		return nil, fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return body.Bytes(), nil
}
