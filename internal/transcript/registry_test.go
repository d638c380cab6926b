package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRename(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetMapping("SPEAKER_00", "Dr Martin"))
	require.NoError(t, reg.SetMapping("SPEAKER_01", "Patient"))

	segments := []Segment{
		{Start: 0, End: 2, Text: "bonjour", Speaker: "SPEAKER_00"},
		{Start: 2, End: 4, Text: "bonjour docteur", Speaker: "SPEAKER_01"},
		{Start: 4, End: 6, Text: "…", Speaker: "SPEAKER_02"}, // unmapped
		{Start: 6, End: 8, Text: "…", Speaker: ""},           // unknown
	}

	out := reg.Rename(segments)

	require.Len(t, out, 4)
	assert.Equal(t, "Dr Martin", out[0].Speaker)
	assert.Equal(t, "Patient", out[1].Speaker)
	assert.Equal(t, "SPEAKER_02", out[2].Speaker)
	assert.Empty(t, out[3].Speaker)

	// Input untouched
	assert.Equal(t, "SPEAKER_00", segments[0].Speaker)
}

func TestRegistryRenameIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetMapping("SPEAKER_00", "Dr Martin"))

	segments := []Segment{{Start: 0, End: 1, Text: "x", Speaker: "SPEAKER_00"}}

	once := reg.Rename(segments)
	twice := reg.Rename(once)
	assert.Equal(t, once, twice)
}

func TestRegistryRenameAppliesCorrectedMapping(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetMapping("SPEAKER_00", "Dr Martin"))

	segments := []Segment{{Start: 0, End: 1, Text: "x", Speaker: "SPEAKER_00"}}
	out := reg.Rename(segments)
	require.Equal(t, "Dr Martin", out[0].Speaker)

	// Fixing a wrong name must replace the earlier one, not stick with it
	require.NoError(t, reg.SetMapping("SPEAKER_00", "Dr Dupont"))
	out = reg.Rename(out)
	assert.Equal(t, "Dr Dupont", out[0].Speaker)
	assert.Equal(t, "SPEAKER_00", out[0].RawSpeaker)
}

func TestRegistryRejectsEmptyTag(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.SetMapping("", "Anyone"), ErrEmptyTag)
}

func TestRegistryAcceptsUnknownTags(t *testing.T) {
	reg := NewRegistry()
	// Mapping registered before the speaker ever appears
	require.NoError(t, reg.SetMapping("SPEAKER_07", "Infirmière"))
	assert.Equal(t, "Infirmière", reg.DisplayName("SPEAKER_07"))
	assert.Equal(t, "SPEAKER_01", reg.DisplayName("SPEAKER_01"))
}

func TestRegistryMappingsCopy(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.SetMapping("SPEAKER_00", "A"))

	m := reg.Mappings()
	m["SPEAKER_00"] = "tampered"
	assert.Equal(t, "A", reg.DisplayName("SPEAKER_00"))
}
