package textfit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFontSize_ShortTextKeepsMaximum(t *testing.T) {
	got := FontSize(Box{Width: 300, Height: 20}, "https://x.io/a", DefaultParams)
	assert.Equal(t, DefaultParams.MaxSize, got)
}

func TestFontSize_NeverBelowFloor(t *testing.T) {
	long := strings.Repeat("https://storage.example.com/bucket/object?sig=abc", 40)
	got := FontSize(Box{Width: 120, Height: 14}, long, DefaultParams)
	assert.Equal(t, DefaultParams.MinSize, got)
}

func TestFontSize_MonotonicInLength(t *testing.T) {
	boxes := []Box{
		{Width: 300, Height: 20},
		{Width: 150, Height: 40},
		{Width: 80, Height: 12},
		{Width: 500, Height: 60},
	}
	for _, box := range boxes {
		prev := FontSize(box, "", DefaultParams)
		for n := 1; n <= 600; n++ {
			size := FontSize(box, strings.Repeat("a", n), DefaultParams)
			assert.LessOrEqual(t, size, prev, "box %+v length %d", box, n)
			assert.GreaterOrEqual(t, size, DefaultParams.MinSize)
			prev = size
		}
	}
}

func TestFontSize_ShrinksForLongURL(t *testing.T) {
	url := "https://storage.googleapis.com/incident-images/user-123/vehicle_front.jpg?X-Goog-Signature=" + strings.Repeat("f", 120)
	got := FontSize(Box{Width: 250, Height: 30}, url, DefaultParams)
	assert.Less(t, got, DefaultParams.MaxSize)
	assert.GreaterOrEqual(t, got, DefaultParams.MinSize)
	assert.True(t, Fits(Box{Width: 250, Height: 30}, len(url), got) || got == DefaultParams.MinSize)
}

func TestLines(t *testing.T) {
	tests := []struct {
		name  string
		width float64
		n     int
		size  float64
		want  int
	}{
		{"empty text still takes a line", 60, 0, 10, 1},
		{"exactly one line", 60, 10, 10, 1},
		{"wraps", 60, 11, 10, 2},
		{"box narrower than a glyph", 4, 5, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lines(tt.width, tt.n, tt.size))
		})
	}
}

func TestParams_Normalized(t *testing.T) {
	p := Params{MaxSize: 2, MinSize: 0, Step: 0}.normalized()
	assert.Equal(t, DefaultParams.MinSize, p.MinSize)
	assert.Equal(t, DefaultParams.MinSize, p.MaxSize)
	assert.Equal(t, DefaultParams.Step, p.Step)
}
