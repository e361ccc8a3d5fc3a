package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTristate(t *testing.T) {
	yes, no := true, false
	yesStr, blank := " YES ", ""
	var nilBool *bool

	tests := []struct {
		name string
		in   any
		want Tristate
	}{
		{"nil", nil, Absent},
		{"bool true", true, True},
		{"bool false", false, False},
		{"pointer true", &yes, True},
		{"pointer false", &no, False},
		{"nil pointer", nilBool, Absent},
		{"yes", "yes", True},
		{"Yes", "Yes", True},
		{"TRUE", "TRUE", True},
		{"one", "1", True},
		{"on", "on", True},
		{"y", "y", True},
		{"padded string pointer", &yesStr, True},
		{"no", "no", False},
		{"False", "False", False},
		{"zero string", "0", False},
		{"off", "Off", False},
		{"empty", "", Absent},
		{"empty pointer", &blank, Absent},
		{"unknown", "maybe", Absent},
		{"int one", 1, True},
		{"int zero", 0, False},
		{"int64 one", int64(1), True},
		{"int other", 7, Absent},
		{"float", 1.0, Absent},
		{"tristate passthrough", False, False},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTristate(tt.in))
		})
	}
}

func TestTristateString(t *testing.T) {
	assert.Equal(t, "absent", Absent.String())
	assert.True(t, True.IsTrue())
	assert.False(t, False.IsTrue())
	assert.False(t, Absent.IsTrue())
	assert.Equal(t, True, Of(true))
	assert.Equal(t, False, Of(false))
}
