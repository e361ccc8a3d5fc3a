package pipeline

import (
	"bytes"
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
	"github.com/Lllllllleong/incidentreportflow/internal/pdftest"
	"github.com/Lllllllleong/incidentreportflow/internal/render"
	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

var (
	proseSection = regexp.MustCompile(`(?s)<section class="prose">(.*?)</section>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// textRenderer stands in for the browser: each page becomes a one-page PDF
// carrying the visible prose text of its markup.
type textRenderer struct {
	fail  string
	drop  string
	calls int
}

func (r *textRenderer) RenderPages(_ context.Context, pages map[string]string) (map[string][]byte, error) {
	r.calls++
	out := make(map[string][]byte, len(pages))
	for id, markup := range pages {
		if id == r.fail {
			return nil, &render.PageError{PageID: id, Err: errors.New("navigation timed out")}
		}
		if id == r.drop {
			continue
		}
		out[id] = pdftest.RenderedPage(visibleProse(markup))
	}
	return out, nil
}

func visibleProse(markup string) string {
	m := proseSection.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	text := html.UnescapeString(anyTag.ReplaceAllString(m[1], " "))
	return strings.Join(strings.Fields(text), " ")
}

// extraFields adds values the template does not define before filling.
type extraFields struct {
	inner pdfform.FormFiller
	extra fields.Values
}

func (e extraFields) Fill(ctx context.Context, template []byte, values fields.Values) (*pdfform.FilledDocument, error) {
	for name, v := range e.extra {
		values[name] = v
	}
	return e.inner.Fill(ctx, template, values)
}

func record() *models.DomainRecord {
	return &models.DomainRecord{
		IncidentID: "INC-3307",
		User:       models.UserProfile{FullName: "Alex Morgan", PolicyNumber: "POL-5521"},
		Incident: models.Incident{
			Location: "Station Road roundabout",
			Facts:    map[string]any{"weather_fog": "yes", "police_attended": false},
		},
		Witnesses: []models.Witness{{Name: "Priya Shah", Phone: "07700 900456"}},
		Prose: models.Prose{
			Transcription:    "I was waiting at the give way line when the van struck my rear bumper",
			Summary:          "Low speed rear impact at a roundabout entry in dry conditions",
			ClosingStatement: "I confirm this account is true to the best of my knowledge",
			FinalReview:      "Statements are consistent and one independent witness is recorded",
		},
	}
}

func newPipeline(filler pdfform.FormFiller, r render.PageRenderer) *Pipeline {
	return New(filler, r)
}

func TestGenerate_EndToEnd(t *testing.T) {
	rec := record()
	p := newPipeline(pdfform.NewFiller(), &textRenderer{})

	result, err := p.Generate(context.Background(), rec, pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	require.NoError(t, err)

	assert.Equal(t, templates.Main().TotalPages+1, result.PageCount)
	for _, s := range []string{rec.Prose.Transcription, rec.Prose.Summary, rec.Prose.ClosingStatement, rec.Prose.FinalReview} {
		assert.True(t, bytes.Contains(result.Bytes, []byte(s)), "assembled report is missing %q", s)
	}

	form, err := pdfform.Read(bytes.NewReader(result.Bytes), nil)
	require.NoError(t, err)
	assert.True(t, form.NeedAppearances())
	assert.Equal(t, result.PageCount, form.PageCount())

	name, err := form.Text("driver_full_name")
	require.NoError(t, err)
	assert.Equal(t, "Alex Morgan", name)
	witness, err := form.Text("witness_name_1")
	require.NoError(t, err)
	assert.Equal(t, "Priya Shah", witness)
}

func TestGenerate_PageCounts(t *testing.T) {
	base := templates.Main().TotalPages
	p := newPipeline(pdfform.NewFiller(), &textRenderer{})
	tests := []struct {
		name      string
		witnesses int
		vehicles  int
	}{
		{"none", 0, 0},
		{"witnesses only", 5, 0},
		{"vehicles only", 0, 1},
		{"both", 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record()
			rec.Witnesses = make([]models.Witness, tt.witnesses)
			rec.Vehicles = make([]models.OtherVehicle, tt.vehicles)
			result, err := p.Generate(context.Background(), rec, pdftest.MainTemplate(), pdftest.RepeatingTemplate())
			require.NoError(t, err)
			assert.Equal(t, base+tt.witnesses+tt.vehicles, result.PageCount)
		})
	}
}

func TestGenerate_UnknownFieldDoesNotFail(t *testing.T) {
	filler := extraFields{
		inner: pdfform.NewFiller(),
		extra: fields.Values{"field_removed_in_last_revision": fields.Text("stale")},
	}
	p := newPipeline(filler, &textRenderer{})

	result, err := p.Generate(context.Background(), record(), pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	require.NoError(t, err)

	form, err := pdfform.Read(bytes.NewReader(result.Bytes), nil)
	require.NoError(t, err)
	_, ok := form.Kind("field_removed_in_last_revision")
	assert.False(t, ok)
	for _, name := range templates.Main().FieldNames() {
		_, ok := form.Kind(name)
		assert.True(t, ok, "field %s lost during assembly", name)
	}
	location, err := form.Text("incident_location")
	require.NoError(t, err)
	assert.Equal(t, "Station Road roundabout", location)
}

func TestGenerate_RenderFailureNamesPage(t *testing.T) {
	p := newPipeline(pdfform.NewFiller(), &textRenderer{fail: PageClosingStatement})

	_, err := p.Generate(context.Background(), record(), pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	require.Error(t, err)
	var pe *render.PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PageClosingStatement, pe.PageID)
}

func TestGenerate_MissingRenderedPage(t *testing.T) {
	p := newPipeline(pdfform.NewFiller(), &textRenderer{drop: PageFinalReview})

	_, err := p.Generate(context.Background(), record(), pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	var pe *render.PageError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PageFinalReview, pe.PageID)
}

func TestGenerate_Rejections(t *testing.T) {
	r := &textRenderer{}
	p := newPipeline(pdfform.NewFiller(), r)

	_, err := p.Generate(context.Background(), nil, pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	assert.ErrorIs(t, err, ErrNoRecord)

	_, err = p.Generate(context.Background(), record(), pdftest.MainTemplate(), pdftest.MainTemplate())
	assert.Error(t, err, "main template must not pass as the repeating template")

	_, err = p.Generate(context.Background(), record(), []byte("not a pdf"), pdftest.RepeatingTemplate())
	assert.Error(t, err)

	bad := templates.Main()
	bad.DynamicBlockLength = 3
	_, err = New(pdfform.NewFiller(), r, WithLayouts(bad, templates.Repeating())).
		Generate(context.Background(), record(), pdftest.MainTemplate(), pdftest.RepeatingTemplate())
	assert.ErrorContains(t, err, "dynamic pages")
}
