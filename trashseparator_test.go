package trashseparator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManeuver(t *testing.T) {
	tests := []struct {
		in       string
		expected Maneuver
		wantErr  bool
	}{
		{"front", ManeuverFront, false},
		{"Front-Left", ManeuverFrontLeft, false},
		{" front_right ", ManeuverFrontRight, false},
		{"BACK_LEFT", ManeuverBackLeft, false},
		{"back-right", ManeuverBackRight, false},
		{"unknown", ManeuverUnknown, true},
		{"sideways", ManeuverUnknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseManeuver(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidManeuver)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, m)
		})
	}
}

func TestManeuverJSON(t *testing.T) {
	out, err := json.Marshal(map[string]Maneuver{"B3": ManeuverFront})
	require.NoError(t, err)
	assert.JSONEq(t, `{"B3":"front"}`, string(out))

	var in map[string]Maneuver
	require.NoError(t, json.Unmarshal([]byte(`{"Residu":"back_left"}`), &in))
	assert.Equal(t, ManeuverBackLeft, in["Residu"])

	_, err = json.Marshal(ManeuverUnknown)
	assert.Error(t, err)
}

func TestPulseEncoding(t *testing.T) {
	for _, us := range []int16{0, 1, 127, 128, 560, 1400, 2400, MaxPulse} {
		encoded := EncodePulse(us)
		assert.Less(t, encoded[0], byte(0x80))
		assert.Less(t, encoded[1], byte(0x80))
		assert.Equal(t, us, DecodePulse(encoded))
	}
}
