package vserial

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestLineParamsFromTermios(t *testing.T) {
	tests := []struct {
		name  string
		cflag uint32
		iflag uint32
		want  LineParams
	}{
		{
			name:  "115200 8N1",
			cflag: unix.B115200 | unix.CS8 | unix.CREAD,
			want:  LineParams{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: ParityNone},
		},
		{
			name:  "9600 7E2 hupcl",
			cflag: unix.B9600 | unix.CS7 | unix.PARENB | unix.CSTOPB | unix.HUPCL,
			want:  LineParams{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: ParityEven, HangupOnClose: true},
		},
		{
			name:  "odd parity",
			cflag: unix.B19200 | unix.CS8 | unix.PARENB | unix.PARODD,
			want:  LineParams{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: ParityOdd},
		},
		{
			name:  "mark parity",
			cflag: unix.B19200 | unix.CS8 | unix.PARENB | unix.PARODD | unix.CMSPAR,
			want:  LineParams{BaudRate: 19200, DataBits: 8, StopBits: 1, Parity: ParityMark},
		},
		{
			name:  "space parity",
			cflag: unix.B19200 | unix.CS5 | unix.PARENB | unix.CMSPAR,
			want:  LineParams{BaudRate: 19200, DataBits: 5, StopBits: 1, Parity: ParitySpace},
		},
		{
			name:  "hardware flow",
			cflag: unix.B57600 | unix.CS6 | unix.CRTSCTS,
			want:  LineParams{BaudRate: 57600, DataBits: 6, StopBits: 1, Parity: ParityNone, FlowControl: FlowControlRTSCTS},
		},
		{
			name:  "software flow",
			cflag: unix.B4800 | unix.CS8,
			iflag: unix.IXON | unix.IXOFF,
			want:  LineParams{BaudRate: 4800, DataBits: 8, StopBits: 1, Parity: ParityNone, FlowControl: FlowControlXONXOFF},
		},
		{
			name:  "B0",
			cflag: unix.B0 | unix.CS8,
			want:  LineParams{BaudRate: 0, DataBits: 8, StopBits: 1, Parity: ParityNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LineParamsFromTermios(&unix.Termios{Cflag: tt.cflag, Iflag: tt.iflag})
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("LineParamsFromTermios mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLineParamsFromTermiosUnknownSpeed(t *testing.T) {
	// BOTHER asks for an arbitrary rate the table does not carry
	_, err := LineParamsFromTermios(&unix.Termios{Cflag: unix.BOTHER | unix.CS8})
	require.ErrorIs(t, err, ErrInvalidBaudRate)
}
