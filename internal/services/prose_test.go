package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Lllllllleong/incidentreportflow/internal/gcp"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

type fakeWriter struct {
	mu      sync.Mutex
	prompts []string
	fail    string
}

func (w *fakeWriter) GenerateText(_ context.Context, instruction, record string) (string, error) {
	w.mu.Lock()
	w.prompts = append(w.prompts, instruction)
	w.mu.Unlock()
	if instruction == w.fail {
		return "", gcp.ErrRefusal
	}
	return "generated from " + strings.SplitN(record, "\n", 2)[0], nil
}

func TestFillMissingProse(t *testing.T) {
	rec := &models.DomainRecord{
		User:  models.UserProfile{FullName: "Kim Park"},
		Prose: models.Prose{Transcription: "Kept as written."},
	}
	w := &fakeWriter{fail: gcp.FinalReviewPrompt}

	n := FillMissingProse(context.Background(), rec, w, slog.Default())

	assert.Equal(t, 2, n)
	assert.Equal(t, "Kept as written.", rec.Prose.Transcription)
	assert.Equal(t, "generated from Driver: Kim Park", rec.Prose.Summary)
	assert.Equal(t, "generated from Driver: Kim Park", rec.Prose.ClosingStatement)
	assert.Empty(t, rec.Prose.FinalReview)
	assert.ElementsMatch(t, []string{gcp.SummaryPrompt, gcp.ClosingStatementPrompt, gcp.FinalReviewPrompt}, w.prompts)
}

func TestFillMissingProseNothingMissing(t *testing.T) {
	rec := &models.DomainRecord{Prose: models.Prose{
		Transcription: "a", Summary: "b", ClosingStatement: "c", FinalReview: "d",
	}}
	w := &fakeWriter{}
	assert.Zero(t, FillMissingProse(context.Background(), rec, w, slog.Default()))
	assert.Empty(t, w.prompts)
}

func TestDescribeRecord(t *testing.T) {
	rec := &models.DomainRecord{
		User:     models.UserProfile{FullName: "Kim Park", VehicleMake: "Ford", VehicleRegistration: "KP19 XYZ"},
		Incident: models.Incident{Location: "High Street", Description: "Hit while parked."},
		Witnesses: []models.Witness{
			{Name: "A", Statement: "Saw the van reverse."},
			{Name: "B"},
		},
		Vehicles: []models.OtherVehicle{{Make: "Transit", DamageDescription: "Rear step bent"}},
	}
	got := DescribeRecord(rec)

	assert.Contains(t, got, "Driver: Kim Park\n")
	assert.Contains(t, got, "Vehicle: Ford KP19 XYZ\n")
	assert.Contains(t, got, "Location: High Street\n")
	assert.Contains(t, got, "Driver's account: Hit while parked.\n")
	assert.Contains(t, got, "Witnesses: 2\n")
	assert.Contains(t, got, "Witness 1 statement: Saw the van reverse.\n")
	assert.NotContains(t, got, "Witness 2 statement")
	assert.Contains(t, got, "Other vehicle 1 damage: Rear step bent\n")
	assert.NotContains(t, got, "Time:")
}
