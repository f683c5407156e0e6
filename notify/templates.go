package notify

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
)

var ErrUnknownTemplate = errors.New("unknown template")

type mailTemplate struct {
	subject *template.Template
	body    *template.Template
}

var sources = map[string][2]string{
	TemplateReservationConfirmed: {
		`Reservation confirmed: {{.ItemTitle}}`,
		`Hi {{.RenterName}},

your reservation {{.ReservationID}} for "{{.ItemTitle}}" is confirmed.

Booked: {{.Units}}
Total: {{.TotalCost}}

Owner contact: {{.OwnerName}}, {{.OwnerEmail}}{{if .OwnerPhone}}, {{.OwnerPhone}}{{end}}
{{- if .OwnerAddress}}
Pick-up address: {{.OwnerAddress}}{{end}}
`,
	},
	TemplateReservationReceived: {
		`New reservation for {{.ItemTitle}}`,
		`Hi {{.OwnerName}},

{{if .RenterName}}{{.RenterName}}{{else}}A renter{{end}} reserved "{{.ItemTitle}}".

Booked: {{.Units}}
Total: {{.TotalCost}}
{{- if .RenterEmail}}

Renter contact: {{.RenterEmail}}{{if .RenterPhone}}, {{.RenterPhone}}{{end}}{{end}}
`,
	},
	TemplateReservationCancelled: {
		`Reservation cancelled: {{.ItemTitle}}`,
		`Hi {{.Name}},

reservation {{.ReservationID}} for "{{.ItemTitle}}" was cancelled.

Released: {{.Units}}
`,
	},
}

// Renderer turns a template name and data into a subject and a plain-text body.
type Renderer struct {
	templates map[string]mailTemplate
}

func NewRenderer() *Renderer {
	r := &Renderer{templates: make(map[string]mailTemplate, len(sources))}
	for name, src := range sources {
		r.templates[name] = mailTemplate{
			subject: template.Must(template.New(name + ".subject").Option("missingkey=zero").Parse(src[0])),
			body:    template.Must(template.New(name + ".body").Option("missingkey=zero").Parse(src[1])),
		}
	}
	return r
}

// Known reports whether name is a registered template.
func (r *Renderer) Known(name string) bool {
	_, ok := r.templates[name]
	return ok
}

func (r *Renderer) Render(name string, data map[string]string) (subject, body string, err error) {
	t, ok := r.templates[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	if data == nil {
		data = map[string]string{}
	}

	var buf bytes.Buffer
	if err := t.subject.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", name, err)
	}
	subject = strings.TrimSpace(buf.String())

	buf.Reset()
	if err := t.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", name, err)
	}
	return subject, buf.String(), nil
}
