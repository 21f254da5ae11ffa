package report

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var funcs = template.FuncMap{
	"num":    formatNumber,
	"sorted": sortedValues,
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
	"short": func(s fmt.Stringer) string {
		str := s.String()
		if len(str) > 8 {
			return str[:8]
		}
		return str
	},
}

const validationTemplate = `# Validation report {{.Result.ExperimentID}}

| Field | Value |
|---|---|
| Domain | {{.Result.Domain}} |
| Stage | {{.Result.Stage}} |
| Attempt | {{.Result.Attempt}} |
| Passed | {{.Result.Passed}} |
| Composite | {{num .Result.Composite}} |
{{- if .Result.SNRdB}}
| SNR (dB) | {{num (deref .Result.SNRdB)}} |
{{- end}}
{{- if .Result.SNRFloorDB}}
| Trap floor (dB) | {{num (deref .Result.SNRFloorDB)}} |
{{- end}}
{{- if .Result.Failure}}
| Failure | {{.Result.Failure}} |
{{- end}}

## Scores
{{range $c, $v := .Result.Scores}}
- {{$c}}: {{num $v}}
{{- end}}

## Violations
{{if .Violations}}{{range .Violations}}
- {{.}}
{{- end}}{{else}}
None.
{{- end}}
{{- if .Corrections}}

## Suggested corrections
{{range sorted .Corrections}}
- ` + "`{{.Name}}`" + ` -> {{num .Value}}
{{- end}}
{{- end}}
{{- if .Result.Detail}}

> {{.Result.Detail}}
{{- end}}
`

const failureTemplate = `# Experiment {{.ExperimentID}} {{.Status}}

- Phase: {{.Phase}}
- Criterion: {{if .Criterion}}{{.Criterion}}{{else}}n/a{{end}}
- Code: {{.Code}}
- Message: {{.Message}}
{{- if .Corrections}}

## Minimal corrective adjustment
{{range sorted .Corrections}}
- ` + "`{{.Name}}`" + ` -> {{num .Value}}
{{- end}}
{{- end}}

## Validation history
{{if .History}}
| Attempt | Stage | Passed | Composite | Violations |
|---|---|---|---|---|
{{- range .History}}
| {{.Attempt}} | {{.Stage}} | {{.Passed}} | {{num .Composite}} | {{len .Violations}} |
{{- end}}
{{range .History}}{{$r := .}}{{range .Violations}}
- attempt {{$r.Attempt}} ({{$r.Stage}}): {{.}}
{{- end}}{{end}}
{{- else}}
No validation results were recorded.
{{- end}}
`

const deliverableTemplate = `# Deliverable for experiment {{.Experiment.ID}}

**Hypothesis:** {{.Experiment.Hypothesis}}

**Domain:** {{.Experiment.Domain}}

## Certified parameters

| Parameter | Value |
|---|---|
{{- range sorted .Experiment.Parameters}}
| {{.Name}} | {{num .Value}} |
{{- end}}

## Phases

| Phase | Status | Retries |
|---|---|---|
{{- range .Phases.States}}
| {{.Phase}} | {{.Status}} | {{.RetryCount}} |
{{- end}}

## Validation results
{{range .Results}}
- {{.Stage}} attempt {{.Attempt}}: passed={{.Passed}} composite={{num .Composite}} violations={{len .Violations}}
{{- end}}
{{- if .Artifact}}

## Generated artifact ({{short .Artifact.ID}})

{{.Artifact.Content}}
{{- end}}
`

// Renderer turns reports into markdown. It is safe for concurrent use.
type Renderer struct {
	validation  *template.Template
	failure     *template.Template
	deliverable *template.Template
}

// NewRenderer parses the report templates.
func NewRenderer() *Renderer {
	return &Renderer{
		validation:  template.Must(template.New("validation").Funcs(funcs).Parse(validationTemplate)),
		failure:     template.Must(template.New("failure").Funcs(funcs).Parse(failureTemplate)),
		deliverable: template.Must(template.New("deliverable").Funcs(funcs).Parse(deliverableTemplate)),
	}
}

// Validation renders a validation report.
func (r *Renderer) Validation(rep *ValidationReport) (string, error) {
	return execute(r.validation, rep)
}

// Failure renders a terminal failure report.
func (r *Renderer) Failure(rep *FailureReport) (string, error) {
	return execute(r.failure, rep)
}

// Deliverable renders the compiled deliverable document.
func (r *Renderer) Deliverable(d Deliverable) (string, error) {
	if d.Experiment == nil || d.Phases == nil {
		return "", fmt.Errorf("deliverable needs an experiment and its phase record")
	}
	return execute(r.deliverable, d)
}

func execute(t *template.Template, data interface{}) (string, error) {
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s report: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// ToHTML converts rendered markdown to HTML.
func ToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.ToHTML([]byte(md), p, renderer)
}
