// Package report renders consolidated decisions as human-readable
// plain-text narratives. Rendering is pure formatting: the composer
// never recomputes or mutates anything the aggregation produced.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/ahrav/go-quorum/internal/domain"
	"github.com/ahrav/go-quorum/internal/ports"
)

// Compile-time check that TemplateComposer implements
// ports.ReportComposer.
var _ ports.ReportComposer = (*TemplateComposer)(nil)

// reportTemplate is the fixed layout for consensus reports. Sections
// appear in a deterministic order: header, verdict, per-analyst detail
// in set order, consolidated warnings, disclaimer.
const reportTemplate = `============================================================
CONSENSUS REPORT
Symbol:       {{.Res.Symbol}}
Generated:    {{rfc3339 .Res.GeneratedAt}}
Contributors: {{.Res.Contributors}}
============================================================

VERDICT
  Recommendation: {{verdict .Res.Recommendation}}
  Confidence:     {{percent .Res.Confidence}}
  Risk:           {{risklabel .Res.Risk}}
  Target price:   {{price .Res.TargetPrice}}
{{- if .Sections}}

ANALYST DETAIL
{{- range .Sections}}

  [{{.ID}}] {{verdict .Result.Recommendation}} at {{percent .Result.Confidence}}
  {{- if .Result.Conclusion}}
  {{.Result.Conclusion}}
  {{- end}}
  {{- range .Result.KeyPoints}}
  - {{.}}
  {{- end}}
  {{- range .Result.Warnings}}
  ! {{.}}
  {{- end}}
{{- end}}
{{- end}}
{{- if .Res.Warnings}}

WARNINGS
{{- range .Res.Warnings}}
  ! {{.Text}} ({{.Analyst}})
{{- end}}
{{- end}}

------------------------------------------------------------
Automated consensus output. Not investment advice.
`

// reportData is the root object handed to the template.
type reportData struct {
	Res      domain.ConsolidatedResult
	Sections []analystSection
}

// analystSection pairs a contributing analyst with its verbatim result
// for the per-analyst detail block.
type analystSection struct {
	ID     string
	Result domain.AnalysisResult
}

// reportFuncs returns the formatting helpers available inside the
// report template. All helpers are stateless and safe for concurrent
// template execution.
func reportFuncs() template.FuncMap {
	return template.FuncMap{
		// verdict renders a recommendation in upper case.
		// Template usage: {{verdict .Recommendation}}
		"verdict": func(r domain.Recommendation) string {
			return strings.ToUpper(r.String())
		},

		// percent renders a [0, 1] fraction as a percentage with one
		// decimal place.
		// Template usage: {{percent .Confidence}}
		"percent": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v*100)
		},

		// price renders an optional price objective, or "n/a" when the
		// decision carries none.
		// Template usage: {{price .TargetPrice}}
		"price": func(p *float64) string {
			if p == nil {
				return "n/a"
			}
			return fmt.Sprintf("%.2f", *p)
		},

		// risklabel names a risk level, or "not assessed" for the zero
		// value.
		// Template usage: {{risklabel .Risk}}
		"risklabel": func(l domain.RiskLevel) string {
			if l == domain.RiskUnspecified {
				return "not assessed"
			}
			return l.String()
		},

		// rfc3339 renders a timestamp in UTC RFC 3339 form.
		// Template usage: {{rfc3339 .GeneratedAt}}
		"rfc3339": func(t time.Time) string {
			return t.UTC().Format(time.RFC3339)
		},
	}
}

// TemplateComposer renders consolidated results through a text/template
// parsed once at construction. It is stateless and safe for concurrent
// use.
type TemplateComposer struct {
	tmpl *template.Template
}

// NewTemplateComposer creates a composer with the standard report
// layout.
func NewTemplateComposer() *TemplateComposer {
	return &TemplateComposer{
		tmpl: template.Must(template.New("report").Funcs(reportFuncs()).Parse(reportTemplate)),
	}
}

// Compose renders one consolidated decision. The per-analyst detail
// follows the set's own order; a nil set skips the detail block and
// renders the verdict alone.
func (c *TemplateComposer) Compose(res domain.ConsolidatedResult, set *domain.PartialResultSet) (string, error) {
	data := reportData{Res: res}
	if set != nil {
		ids := set.IDs()
		data.Sections = make([]analystSection, 0, len(ids))
		for _, id := range ids {
			if result, ok := set.Get(id); ok {
				data.Sections = append(data.Sections, analystSection{ID: id, Result: result})
			}
		}
	}

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}
