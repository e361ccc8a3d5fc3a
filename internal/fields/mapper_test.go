package fields

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
	"github.com/Lllllllleong/incidentreportflow/internal/templates"
)

// mappableNames lists every PDF field name Map can ever write.
func mappableNames() []string {
	set := map[string]struct{}{
		"report_reference":         {},
		"number_of_witnesses":      {},
		"number_of_other_vehicles": {},
	}
	for _, b := range userTextBindings {
		set[PDFName(b.field)] = struct{}{}
	}
	for _, b := range incidentTextBindings {
		set[PDFName(b.field)] = struct{}{}
	}
	for _, b := range compositeBindings {
		for _, f := range b.fields {
			set[PDFName(f)] = struct{}{}
		}
	}
	for _, f := range AutoFitFields() {
		set[f] = struct{}{}
	}
	for _, g := range checkboxGroups {
		for _, f := range g.facts {
			set[PDFName(f)] = struct{}{}
		}
	}
	for _, f := range pairedFacts {
		set[PDFName(f+"_yes")] = struct{}{}
		set[PDFName(f+"_no")] = struct{}{}
	}
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func TestFieldTables_MatchTemplateManifest(t *testing.T) {
	diff := templates.Main().DiffFields(mappableNames())
	assert.Empty(t, diff.Missing, "template fields nothing maps to")
	assert.Empty(t, diff.Unexpected, "mapped names the template does not carry")
}

func TestFieldTables_KindsMatchManifest(t *testing.T) {
	kinds := map[string]string{}
	for _, f := range templates.Main().Fields {
		kinds[f.Name] = f.Kind
	}
	for _, g := range checkboxGroups {
		for _, f := range g.facts {
			assert.Equal(t, "checkbox", kinds[PDFName(f)], f)
		}
	}
	for _, f := range AutoFitFields() {
		assert.Equal(t, "text", kinds[f], f)
	}
}

func TestAliasesPointAtTemplateFields(t *testing.T) {
	names := map[string]bool{}
	for _, n := range templates.Main().FieldNames() {
		names[n] = true
	}
	for logical, pdf := range Aliases {
		assert.True(t, names[pdf], "%s -> %s", logical, pdf)
		assert.False(t, names[logical], "alias source %s is itself a template field", logical)
	}
}

func TestMap_OmitsMissingData(t *testing.T) {
	v := Map(&models.DomainRecord{IncidentID: "INC-1"})

	assert.Equal(t, Text("INC-1"), v["report_reference"])
	assert.Equal(t, Text("0"), v["number_of_witnesses"])
	assert.Equal(t, Text("0"), v["number_of_other_vehicles"])
	assert.NotContains(t, v, "driver_full_name")
	assert.NotContains(t, v, "weather_fog")
	assert.NotContains(t, v, "file_url_scene_1")
	assert.NotContains(t, v, "police_attended_no")

	// Derived from the empty collections.
	assert.Equal(t, Clear(), v["witnesses_present_yes"])
	assert.Equal(t, Check(True), v["witnesses_present_no"])
	assert.Equal(t, Check(True), v["other_vehicles_involved_no"])
}

func TestMap_NilRecord(t *testing.T) {
	assert.Empty(t, Map(nil))
}

func TestMap_FullRecord(t *testing.T) {
	r := &models.DomainRecord{
		IncidentID: "INC-9",
		User: models.UserProfile{
			FullName:             "  Jane Driver ",
			DrivingLicenseNumber: "DRIVE123",
			VehicleMake:          "Ford",
			EmergencyContact:     "Pat | 0161 | pat@example.com",
		},
		Incident: models.Incident{
			What3Words: "///a.b.c",
			Facts: map[string]any{
				"weather_drizzle":           "Yes",
				"weather_thunder_lightning": true,
				"road_icy":                  "1",
				"impact_front_nearside":     true,
				"injury_neck":               "no",
				"medical_attention":         false,
				"police_attended":           "yes",
				"witnesses_present":         "no",
			},
		},
		Witnesses: []models.Witness{{Name: "A"}, {Name: "B"}},
		Vehicles:  []models.OtherVehicle{{DriverName: "C"}},
		Images: map[string]string{
			models.ImageDrivingLicense: "https://example.com/licence.jpg",
			models.ImageScene1:         "  ",
		},
	}
	v := Map(r)

	assert.Equal(t, Text("Jane Driver"), v["driver_full_name"])
	assert.Equal(t, Text("DRIVE123"), v["Drivers_Licence_Number"])
	assert.Equal(t, Text("Ford"), v["vehicle-make"])
	assert.Equal(t, Text("///a.b.c"), v["what_3_words"])
	assert.Equal(t, Text("Pat"), v["emergency_contact_name"])
	assert.Equal(t, Text("pat@example.com"), v["emergency_contact_email"])
	assert.NotContains(t, v, "emergency_contact_company")
	assert.Equal(t, Text("2"), v["number_of_witnesses"])
	assert.Equal(t, Text("1"), v["number_of_other_vehicles"])

	assert.Equal(t, TextFit("https://example.com/licence.jpg"), v["file_url_driving_licence"])
	assert.NotContains(t, v, "file_url_scene_1")

	assert.Equal(t, Check(True), v["weather_drizzel"])
	assert.Equal(t, Check(True), v["weather_thunder"])
	assert.Equal(t, Check(True), v["road_condtion_icy"])
	assert.Equal(t, Check(True), v["impact_front_near_side"])
	assert.Equal(t, Check(False), v["injury_neck"])

	assert.Equal(t, Clear(), v["recieved_medical_attention_yes"])
	assert.Equal(t, Check(True), v["recieved_medical_attention_no"])
	assert.Equal(t, Check(True), v["polcie_attended_yes"])
	assert.Equal(t, Clear(), v["police_attended_no"])
	// An explicit answer wins over the derived one.
	assert.Equal(t, Check(True), v["witnesses_present_no"])
	assert.Equal(t, Check(True), v["other_vehicles_involved_yes"])
}

func TestMap_PairsNeverBothChecked(t *testing.T) {
	for _, answer := range []any{true, false, "yes", "no", nil, "garbage"} {
		facts := map[string]any{}
		for _, f := range pairedFacts {
			facts[f] = answer
		}
		v := Map(&models.DomainRecord{Incident: models.Incident{Facts: facts}})
		for _, f := range pairedFacts {
			yes, no := v[PDFName(f+"_yes")], v[PDFName(f+"_no")]
			assert.False(t, yes.Kind == KindCheck && no.Kind == KindCheck, "%s=%v", f, answer)
		}
	}
}

func TestSplitComposite(t *testing.T) {
	tests := []struct {
		in   string
		want [4]string
	}{
		{"", [4]string{}},
		{"   ", [4]string{}},
		{"Sam", [4]string{"Sam"}},
		{"Sam | 0770", [4]string{"Sam", "0770"}},
		{"Sam|0770|sam@x.com|Tow Co", [4]string{"Sam", "0770", "sam@x.com", "Tow Co"}},
		{" Sam | | sam@x.com | Tow | Ltd ", [4]string{"Sam", "", "sam@x.com", "Tow | Ltd"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitComposite(tt.in))
		})
	}
}

func TestAutoFitFields(t *testing.T) {
	names := AutoFitFields()
	require.Len(t, names, len(imageFields))
	assert.Contains(t, names, "file_url_driving_licence")
	assert.Contains(t, names, "file_url_audio_account")
}

func TestMap_PairsAnsweredOrUntouched(t *testing.T) {
	tests := []struct {
		name     string
		answer   any
		answered bool
	}{
		{"true", true, true},
		{"false", false, true},
		{"yes", "yes", true},
		{"no", "No", true},
		{"missing", nil, false},
		{"unparseable", "maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facts := map[string]any{"police_attended": tt.answer}
			v := Map(&models.DomainRecord{Incident: models.Incident{Facts: facts}})
			yes, hasYes := v[PDFName("police_attended_yes")]
			no, hasNo := v[PDFName("police_attended_no")]
			if !tt.answered {
				assert.False(t, hasYes)
				assert.False(t, hasNo)
				return
			}
			require.True(t, hasYes)
			require.True(t, hasNo)
			kinds := []Kind{yes.Kind, no.Kind}
			assert.ElementsMatch(t, []Kind{KindCheck, KindClear}, kinds)
		})
	}
}
