package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/incidentreportflow/internal/gcp"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

// ProseWriter produces narrative text. gcp.VertexClient implements it.
type ProseWriter interface {
	GenerateText(ctx context.Context, instruction, record string) (string, error)
}

type proseSection struct {
	name   string
	prompt string
	field  func(*models.Prose) *string
}

var proseSections = []proseSection{
	{"transcription", gcp.TranscriptionPrompt, func(p *models.Prose) *string { return &p.Transcription }},
	{"summary", gcp.SummaryPrompt, func(p *models.Prose) *string { return &p.Summary }},
	{"closingStatement", gcp.ClosingStatementPrompt, func(p *models.Prose) *string { return &p.ClosingStatement }},
	{"finalReview", gcp.FinalReviewPrompt, func(p *models.Prose) *string { return &p.FinalReview }},
}

// FillMissingProse generates every empty prose section of rec. A section that
// fails to generate stays empty and is logged; its page then renders as not
// provided. It returns how many sections were filled.
func FillMissingProse(ctx context.Context, rec *models.DomainRecord, w ProseWriter, logger *slog.Logger) int {
	summary := DescribeRecord(rec)
	results := make([]string, len(proseSections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(proseSections))
	for i, s := range proseSections {
		if strings.TrimSpace(*s.field(&rec.Prose)) != "" {
			continue
		}
		g.Go(func() error {
			text, err := w.GenerateText(gctx, s.prompt, summary)
			if err != nil {
				logger.Warn("Failed to generate prose section.", "section", s.name, "error", err)
				return nil
			}
			results[i] = text
			return nil
		})
	}
	_ = g.Wait()

	filled := 0
	for i, s := range proseSections {
		if results[i] != "" {
			*s.field(&rec.Prose) = results[i]
			filled++
		}
	}
	return filled
}

// DescribeRecord renders the facts a prose prompt may draw on as labelled
// lines. Empty values are omitted.
func DescribeRecord(rec *models.DomainRecord) string {
	var b strings.Builder
	line := func(label, value string) {
		if v := strings.TrimSpace(value); v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	line("Driver", rec.User.FullName)
	line("Vehicle", joinWords(rec.User.VehicleMake, rec.User.VehicleModel, rec.User.VehicleRegistration))
	line("Date", rec.Incident.Date)
	line("Time", rec.Incident.Time)
	line("Location", rec.Incident.Location)
	line("Road type", rec.Incident.RoadType)
	line("Speed limit", rec.Incident.SpeedLimit)
	line("Driver speed", rec.Incident.YourSpeed)
	line("Visibility", rec.Incident.Visibility)
	line("Traffic", rec.Incident.TrafficConditions)
	line("Driver's account", rec.Incident.Description)
	line("Injuries", rec.Incident.InjuryDescription)
	line("Damage", rec.Incident.DamageDescription)
	line("Police reference", rec.Incident.PoliceReference)
	line("Existing transcription", rec.Prose.Transcription)
	fmt.Fprintf(&b, "Witnesses: %d\n", len(rec.Witnesses))
	for i, w := range rec.Witnesses {
		line(fmt.Sprintf("Witness %d statement", i+1), w.Statement)
	}
	fmt.Fprintf(&b, "Other vehicles: %d\n", len(rec.Vehicles))
	for i, v := range rec.Vehicles {
		line(fmt.Sprintf("Other vehicle %d", i+1), joinWords(v.Make, v.Model, v.Registration))
		line(fmt.Sprintf("Other vehicle %d damage", i+1), v.DamageDescription)
	}
	return b.String()
}

func joinWords(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
