package fields

import (
	"strconv"
	"strings"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

// Map flattens a DomainRecord into PDF field values. It performs no I/O and
// never fails: missing optional data is simply omitted.
func Map(r *models.DomainRecord) Values {
	out := make(Values, 192)
	if r == nil {
		return out
	}

	out.SetText("report_reference", r.IncidentID)
	for _, b := range userTextBindings {
		out.SetText(PDFName(b.field), strings.TrimSpace(b.get(r)))
	}
	for _, b := range incidentTextBindings {
		out.SetText(PDFName(b.field), strings.TrimSpace(b.get(r)))
	}
	for _, b := range compositeBindings {
		for i, part := range SplitComposite(b.get(r)) {
			out.SetText(PDFName(b.fields[i]), part)
		}
	}

	witnesses, vehicles := len(r.Witnesses), len(r.Vehicles)
	out.SetText("number_of_witnesses", strconv.Itoa(witnesses))
	out.SetText("number_of_other_vehicles", strconv.Itoa(vehicles))

	for slot, field := range imageFields {
		if url := strings.TrimSpace(r.Images[slot]); url != "" {
			out[PDFName(field)] = TextFit(url)
		}
	}

	facts := r.Incident.Facts
	for _, g := range checkboxGroups {
		for _, fact := range g.facts {
			out.SetCheck(PDFName(fact), ParseTristate(facts[fact]))
		}
	}
	for _, fact := range pairedFacts {
		answer := ParseTristate(facts[fact])
		if answer == Absent {
			answer = derivedAnswer(fact, witnesses, vehicles)
		}
		out.SetPair(PDFName(fact+"_yes"), PDFName(fact+"_no"), answer)
	}
	return out
}

// derivedAnswer fills the questions whose answer is implied by the record's
// collections when the fact itself was never recorded.
func derivedAnswer(fact string, witnesses, vehicles int) Tristate {
	switch fact {
	case "witnesses_present":
		return Of(witnesses > 0)
	case "other_vehicles_involved":
		return Of(vehicles > 0)
	}
	return Absent
}

// SplitComposite splits a "Name | Phone | Email | Company" string into its four
// positional parts. Missing trailing parts are empty; extra parts are folded
// into the last one.
func SplitComposite(s string) [4]string {
	var out [4]string
	if strings.TrimSpace(s) == "" {
		return out
	}
	parts := strings.SplitN(s, "|", 4)
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// AutoFitFields lists the PDF field names that carry URLs and are laid out with
// auto-fit.
func AutoFitFields() []string {
	names := make([]string, 0, len(imageFields))
	for _, field := range imageFields {
		names = append(names, PDFName(field))
	}
	return names
}
