package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetPair(t *testing.T) {
	tests := []struct {
		name    string
		answer  Tristate
		wantYes *Value
		wantNo  *Value
	}{
		{"true", True, &Value{Kind: KindCheck, Check: True}, &Value{Kind: KindClear, Check: False}},
		{"false", False, &Value{Kind: KindClear, Check: False}, &Value{Kind: KindCheck, Check: True}},
		{"absent", Absent, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Values{}
			v.SetPair("q_yes", "q_no", tt.answer)

			check := func(name string, want *Value) {
				got, ok := v[name]
				if want == nil {
					assert.False(t, ok, name)
					return
				}
				assert.True(t, ok, name)
				assert.Equal(t, *want, got, name)
			}
			check("q_yes", tt.wantYes)
			check("q_no", tt.wantNo)
		})
	}
}

func TestSetPair_NeverChecksBoth(t *testing.T) {
	r := DefaultResolver()
	for _, answer := range []Tristate{True, False, Absent} {
		v := Values{}
		v.SetPair("q_yes", "q_no", answer)
		checked := 0
		for _, s := range v.Strings(r) {
			if s != OffToken {
				checked++
			}
		}
		assert.LessOrEqual(t, checked, 1, answer.String())
	}
}

func TestValuesSetters(t *testing.T) {
	v := Values{}
	v.SetText("empty", "")
	v.SetText("name", "Jane")
	v.SetCheck("absent", Absent)
	v.SetCheck("no", False)
	v.SetCheck("yes", True)

	assert.Equal(t, []string{"name", "no", "yes"}, v.Names())
	assert.Equal(t, Text("Jane"), v["name"])
}

func TestValuesStrings(t *testing.T) {
	v := Values{
		"driver_full_name":   Text("Jane"),
		"file_url_scene_1":   TextFit("https://example.com/a.jpg"),
		"weather_fog":        Check(True),
		"road_wet":           Check(True),
		"injury_head":        Check(False),
		"police_attended_no": Clear(),
	}
	assert.Equal(t, map[string]string{
		"driver_full_name":   "Jane",
		"file_url_scene_1":   "https://example.com/a.jpg",
		"weather_fog":        "On",
		"road_wet":           "Yes",
		"police_attended_no": "Off",
	}, v.Strings(DefaultResolver()))
}
