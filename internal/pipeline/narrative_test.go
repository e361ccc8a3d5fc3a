package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

func TestNarrativePages(t *testing.T) {
	rec := &models.DomainRecord{
		IncidentID: "INC-9",
		User:       models.UserProfile{FullName: "Sam <Lee>"},
		Prose: models.Prose{
			Transcription: "First paragraph.\n\nSecond paragraph.",
			Summary:       "<script>alert(1)</script>",
		},
	}
	pages, err := NarrativePages(rec)
	require.NoError(t, err)
	require.Len(t, pages, len(NarrativeOrder))

	assert.Contains(t, pages[PageTranscription], "<p>First paragraph.</p>")
	assert.Contains(t, pages[PageTranscription], "<p>Second paragraph.</p>")
	assert.Contains(t, pages[PageTranscription], "Incident INC-9")
	assert.Contains(t, pages[PageTranscription], "Sam &lt;Lee&gt;")
	assert.Contains(t, pages[PageTranscription], "Page 1 of 4")

	assert.NotContains(t, pages[PageSummary], "<script>")
	assert.Contains(t, pages[PageSummary], "&lt;script&gt;")

	for _, id := range []string{PageClosingStatement, PageFinalReview} {
		assert.Contains(t, pages[id], notProvided, id)
	}
	assert.Contains(t, pages[PageFinalReview], "Page 4 of 4")
}

func TestParagraphs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"whitespace", " \n\n\t", nil},
		{"single", "  one line ", []string{"one line"}},
		{"crlf", "a\r\n\r\nb", []string{"a", "b"}},
		{"soft break kept", "line one\nline two", []string{"line one\nline two"}},
		{"extra blank lines", "a\n\n\n\nb", []string{"a", "b"}},
		{"nfc", "cafe\u0301", []string{"caf\u00e9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paragraphs(tt.in))
		})
	}
}
