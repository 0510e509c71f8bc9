package vserial

// Pin numbers follow the DB-9 connector and are the characters used by the
// control protocol.
const (
	pinRTS = '7'
	pinDTR = '4'
	pinCTS = '8'
	pinDCD = '1'
	pinDSR = '6'
	pinRI  = '9'

	pinUnconnected = 'x'
)

// Canonical null-modem wiring: RTS drives the peer's CTS, DTR drives the
// peer's DCD and DSR.
const (
	StandardRTSMap = LineCTS
	StandardDTRMap = LineDCD | LineDSR
)

// pinOrder is the order status lines are written in a pin map field.
var pinOrder = []struct {
	pin  byte
	line LineMask
}{
	{pinCTS, LineCTS},
	{pinDCD, LineDCD},
	{pinDSR, LineDSR},
	{pinRI, LineRI},
}

const pinMapWidth = len("7-8,1,6,9")

// unconnectedPinMap is the placeholder for an absent side.
const unconnectedPinMap = "x-x,x,x,x"

func pinLine(c byte) (LineMask, bool) {
	for _, p := range pinOrder {
		if p.pin == c {
			return p.line, true
		}
	}
	return 0, false
}

// ParsePinMap parses a "<primary>-<m1>,<m2>,<m3>,<m4>" field. primary must
// be the pin of the control line the field describes (7 for RTS, 4 for DTR).
func ParsePinMap(field string, primary byte) (LineMask, error) {
	if len(field) != pinMapWidth || field[0] != primary || field[1] != '-' ||
		field[3] != ',' || field[5] != ',' || field[7] != ',' {
		return 0, ErrInvalidPinMap
	}
	var m LineMask
	for i := 2; i < pinMapWidth; i += 2 {
		c := field[i]
		if c == pinUnconnected {
			continue
		}
		line, ok := pinLine(c)
		if !ok {
			return 0, ErrInvalidPinMap
		}
		m |= line
	}
	return m, nil
}

// FormatPinMap renders m in the control protocol notation.
func FormatPinMap(primary byte, m LineMask) string {
	buf := []byte{primary, '-', pinUnconnected, ',', pinUnconnected, ',', pinUnconnected, ',', pinUnconnected}
	slot := 2
	for _, p := range pinOrder {
		if m&p.line != 0 {
			buf[slot] = p.pin
			slot += 2
		}
	}
	return string(buf)
}

// isStandardWiring reports whether one endpoint is wired and configured
// exactly like a canonical null-modem cable end.
func isStandardWiring(rts, dtr LineMask, dtrAtOpen bool) bool {
	return rts == StandardRTSMap && dtr == StandardDTRMap && dtrAtOpen
}
