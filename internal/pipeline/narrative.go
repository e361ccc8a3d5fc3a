package pipeline

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

// Narrative page IDs in the order they fill the template's dynamic block.
const (
	PageTranscription    = "narrative_transcription"
	PageSummary          = "narrative_summary"
	PageClosingStatement = "narrative_closing_statement"
	PageFinalReview      = "narrative_final_review"
)

// NarrativeOrder is the block order of the rendered pages.
var NarrativeOrder = []string{PageTranscription, PageSummary, PageClosingStatement, PageFinalReview}

var narrativeTitles = map[string]string{
	PageTranscription:    "Personal Statement (Transcription)",
	PageSummary:          "Incident Summary",
	PageClosingStatement: "Closing Statement",
	PageFinalReview:      "Final Review",
}

const notProvided = "Not provided."

var narrativeTmpl = template.Must(template.New("narrative").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: A4; margin: 0; }
body { margin: 0; font-family: Helvetica, Arial, sans-serif; font-size: 11pt; color: #111; }
.page { position: relative; box-sizing: border-box; width: 210mm; height: 297mm; padding: 18mm 20mm; overflow: hidden; }
header { border-bottom: 2px solid #0b3d6e; margin-bottom: 8mm; padding-bottom: 3mm; }
header h1 { font-size: 16pt; margin: 0 0 2mm 0; color: #0b3d6e; }
header p { margin: 0; font-size: 9pt; color: #555; }
.prose p { line-height: 1.45; margin: 0 0 3.5mm 0; text-align: justify; white-space: pre-wrap; }
.prose p.missing { color: #888; font-style: italic; }
footer { position: absolute; bottom: 10mm; font-size: 8pt; color: #777; }
</style>
</head>
<body>
<div class="page">
<header>
<h1>{{.Title}}</h1>
<p>Incident {{.IncidentID}}{{with .Driver}} &middot; {{.}}{{end}}</p>
</header>
<section class="prose">
{{- if .Paragraphs}}{{range .Paragraphs}}
<p>{{.}}</p>{{end}}{{else}}
<p class="missing">` + notProvided + `</p>{{end}}
</section>
<footer>Page {{.Position}} of {{.Total}} of the narrative section</footer>
</div>
</body>
</html>
`))

type narrativeData struct {
	Title      string
	IncidentID string
	Driver     string
	Paragraphs []string
	Position   int
	Total      int
}

// NarrativePages builds the markup for the four prose pages keyed by page ID.
// Missing prose still yields a page so the dynamic block keeps its length.
func NarrativePages(rec *models.DomainRecord) (map[string]string, error) {
	prose := map[string]string{
		PageTranscription:    rec.Prose.Transcription,
		PageSummary:          rec.Prose.Summary,
		PageClosingStatement: rec.Prose.ClosingStatement,
		PageFinalReview:      rec.Prose.FinalReview,
	}
	out := make(map[string]string, len(NarrativeOrder))
	for i, id := range NarrativeOrder {
		var buf bytes.Buffer
		err := narrativeTmpl.Execute(&buf, narrativeData{
			Title:      narrativeTitles[id],
			IncidentID: rec.IncidentID,
			Driver:     strings.TrimSpace(rec.User.FullName),
			Paragraphs: Paragraphs(prose[id]),
			Position:   i + 1,
			Total:      len(NarrativeOrder),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build page %s: %w", id, err)
		}
		out[id] = buf.String()
	}
	return out, nil
}

// Paragraphs normalizes s to NFC and splits it on blank lines. Line endings
// are unified and surrounding whitespace is trimmed from each paragraph.
func Paragraphs(s string) []string {
	s = norm.NFC.String(strings.ReplaceAll(s, "\r\n", "\n"))
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
