package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0m00s"},
		{12.7, "0m12s"},
		{65, "1m05s"},
		{3600, "1h00m00s"},
		{3725, "1h02m05s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.seconds))
	}
}

func TestRenderWithSpeakersAndTimestamps(t *testing.T) {
	segments := []Segment{
		{Start: 12, End: 15, Text: " je vous écoute ", Speaker: "Dr Martin"},
		{Start: 15, End: 20, Text: "j'ai mal ici", Speaker: "Patient"},
		{Start: 20, End: 22, Text: "inaudible", Speaker: ""},
	}

	got := Render(segments, DefaultRenderOptions())

	want := "0m12s - 0m15s — Dr Martin: je vous écoute\n" +
		"0m15s - 0m20s — Patient: j'ai mal ici\n" +
		"0m20s - 0m22s — inaudible"
	assert.Equal(t, want, got)
}

func TestRenderPlain(t *testing.T) {
	segments := []Segment{
		{Start: 0, End: 2, Text: "bonjour", Speaker: "SPEAKER_00"},
	}

	assert.Equal(t, "SPEAKER_00: bonjour",
		Render(segments, RenderOptions{Speakers: true}))
	assert.Equal(t, "bonjour",
		Render(segments, RenderOptions{}))
}
