package vserial

import (
	"fmt"
	"strings"
)

// Status returns the query channel record:
//
//	lb#nm1#nm2#free1#free2#lbrts#lbdtr#lbdao#rts1#dtr1#dao1#rts2#dtr2#dao2
//
// Absent indices read xxxxx, absent pin maps x-x,x,x,x and absent flags x.
func (a *Adapter) Status() string {
	a.mu.Lock()
	lb, pair := a.lastLoopback, a.lastPair
	free := a.freeSlots(2)
	a.mu.Unlock()

	fields := make([]string, 0, 14)
	index := func(ep *EndpointSpec) string {
		if ep == nil {
			return autoIndexID
		}
		return formatIndex(ep.Index)
	}
	wiring := func(ep *EndpointSpec) []string {
		if ep == nil {
			return []string{unconnectedPinMap, unconnectedPinMap, flagUnset}
		}
		return []string{FormatPinMap(pinRTS, ep.RTSMap), FormatPinMap(pinDTR, ep.DTRMap), formatFlag(ep.DTRAtOpen)}
	}

	var pa, pb *EndpointSpec
	if pair != nil {
		pa, pb = &pair.A, &pair.B
	}
	fields = append(fields, index(lb), index(pa), index(pb))
	for i := 0; i < 2; i++ {
		if i < len(free) {
			fields = append(fields, formatIndex(free[i]))
		} else {
			fields = append(fields, autoIndexID)
		}
	}
	fields = append(fields, wiring(lb)...)
	fields = append(fields, wiring(pa)...)
	fields = append(fields, wiring(pb)...)
	return strings.Join(fields, fieldSep)
}

// AttrNames lists the per-device attributes Attr understands
var AttrNames = []string{
	"ownidx", "pairidx",
	"ownrtsmap", "owndtrmap", "pairrtsmap", "pairdtrmap",
	"devtype", "owndtratopen", "pairdtratopen",
	"evt", "mcr", "msr",
}

// Attr returns one attribute of the device at index in its text form.
func (a *Adapter) Attr(index int, name string) (string, error) {
	info, err := a.Info(index)
	if err != nil {
		return "", err
	}
	switch name {
	case "ownidx":
		return formatIndex(info.Index), nil
	case "pairidx":
		return formatIndex(info.Peer), nil
	case "ownrtsmap":
		return FormatPinMap(pinRTS, info.RTSMap), nil
	case "owndtrmap":
		return FormatPinMap(pinDTR, info.DTRMap), nil
	case "pairrtsmap":
		return FormatPinMap(pinRTS, info.PeerRTSMap), nil
	case "pairdtrmap":
		return FormatPinMap(pinDTR, info.PeerDTRMap), nil
	case "devtype":
		return info.Kind.String(), nil
	case "owndtratopen":
		return formatFlag(info.DTRAtOpen), nil
	case "pairdtratopen":
		return formatFlag(info.PeerDTRAtOpen), nil
	case "evt":
		return info.Counters.String(), nil
	case "mcr":
		return info.MCR.String(), nil
	case "msr":
		return info.MSR.String(), nil
	default:
		return "", &CommandError{Field: "attr", Value: name, Err: ErrInvalidCommand}
	}
}

// Fault injection commands
const (
	FaultFraming     = 'f'
	FaultParity      = 'p'
	FaultOverrun     = 'o'
	FaultRingOn      = 'r'
	FaultRingOff     = 'i'
	FaultBreak       = 'b'
	FaultCableCut    = 'y'
	FaultCableRepair = 'n'
)

// InjectFault simulates a line event on the device at index. Raising RI
// counts an interrupt, dropping it does not. An injected break is seen by
// the device's own session as a NUL byte.
func (a *Adapter) InjectFault(index int, cmd byte) error {
	d, err := a.device(index)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return ErrDeviceGone
	}

	switch cmd {
	case FaultFraming:
		d.counters.Frame++
	case FaultParity:
		d.counters.Parity++
	case FaultOverrun:
		d.counters.Overrun++
	case FaultRingOn:
		d.applyStatus(d.msr|LineRI, true)
	case FaultRingOff:
		d.applyStatus(d.msr&^LineRI, true)
	case FaultBreak:
		d.counters.Break++
		if d.sess != nil {
			d.sess.deliver([]byte{0})
		}
	case FaultCableCut:
		d.faultyCable = true
	case FaultCableRepair:
		d.faultyCable = false
	default:
		return &CommandError{Field: "fault", Value: fmt.Sprintf("%c", cmd), Err: ErrInvalidCommand}
	}
	logger().Debug().Int("index", index).Str("fault", string(rune(cmd))).Msg("fault injected")
	return nil
}
