package vserial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePinMap(t *testing.T) {
	tests := []struct {
		field   string
		primary byte
		want    LineMask
		wantErr bool
	}{
		{"7-8,x,x,x", pinRTS, LineCTS, false},
		{"4-1,6,x,x", pinDTR, LineDCD | LineDSR, false},
		{"4-x,x,x,x", pinDTR, 0, false},
		{"7-9,8,6,1", pinRTS, LineCTS | LineDCD | LineDSR | LineRI, false},
		{"7-8,8,x,x", pinRTS, LineCTS, false},
		{"4-8,x,x,x", pinRTS, 0, true},  // wrong primary
		{"7-7,x,x,x", pinRTS, 0, true},  // an output is not a status pin
		{"7-8,x,x", pinRTS, 0, true},    // too short
		{"7-8,x,x,x,", pinRTS, 0, true}, // too long
		{"7:8,x,x,x", pinRTS, 0, true},  // bad separator
		{"7-8.x,x,x", pinRTS, 0, true},  // bad delimiter
		{"x-x,x,x,x", pinRTS, 0, true},  // placeholder
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := ParsePinMap(tt.field, tt.primary)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPinMap)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPinMap(t *testing.T) {
	assert.Equal(t, "7-8,x,x,x", FormatPinMap(pinRTS, StandardRTSMap))
	assert.Equal(t, "4-1,6,x,x", FormatPinMap(pinDTR, StandardDTRMap))
	assert.Equal(t, "4-x,x,x,x", FormatPinMap(pinDTR, 0))
	assert.Equal(t, "7-8,1,6,9", FormatPinMap(pinRTS, StatusLines))

	// every mask survives a round trip
	for m := LineMask(0); m <= StatusLines; m++ {
		if m&^StatusLines != 0 {
			continue
		}
		got, err := ParsePinMap(FormatPinMap(pinRTS, m), pinRTS)
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
}

func TestIsStandardWiring(t *testing.T) {
	assert.True(t, isStandardWiring(StandardRTSMap, StandardDTRMap, true))
	assert.False(t, isStandardWiring(StandardRTSMap, StandardDTRMap, false))
	assert.False(t, isStandardWiring(StandardRTSMap|LineRI, StandardDTRMap, true))
	assert.False(t, isStandardWiring(StandardRTSMap, LineDSR, true))
}
