package vserial

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DeviceFilter selects which devices List returns
type DeviceFilter int

const (
	FilterAll DeviceFilter = iota
	FilterNullModem
	FilterLoopback
	FilterStandard
	FilterCustom
)

var filterNames = map[string]DeviceFilter{
	"all":        FilterAll,
	"null-modem": FilterNullModem,
	"loopback":   FilterLoopback,
	"standard":   FilterStandard,
	"custom":     FilterCustom,
}

// ParseDeviceFilter parses all, null-modem, loopback, standard or custom.
func ParseDeviceFilter(s string) (DeviceFilter, error) {
	f, ok := filterNames[strings.ToLower(s)]
	if !ok {
		return 0, fmt.Errorf("%w: filter %q", ErrInvalidCommand, s)
	}
	return f, nil
}

func (f DeviceFilter) match(k DeviceKind) bool {
	switch f {
	case FilterNullModem:
		return !k.Loopback()
	case FilterLoopback:
		return k.Loopback()
	case FilterStandard:
		return k == StandardNullModem || k == StandardLoopback
	case FilterCustom:
		return k == CustomNullModem || k == CustomLoopback
	default:
		return true
	}
}

// DeviceInfo is a snapshot of one endpoint
type DeviceInfo struct {
	Index         int
	Peer          int
	Kind          DeviceKind
	Description   string
	RTSMap        LineMask
	DTRMap        LineMask
	PeerRTSMap    LineMask
	PeerDTRMap    LineMask
	DTRAtOpen     bool
	PeerDTRAtOpen bool
	MCR           LineMask
	MSR           LineMask
	Params        LineParams
	Counters      Counters
	Open          bool
	FaultyCable   bool
	Waiting       bool
}

// List returns the installed devices matching filter, ordered by index
func (a *Adapter) List(filter DeviceFilter) []DeviceInfo {
	a.mu.Lock()
	var devs []*device
	for _, d := range a.slots {
		if d != nil && filter.match(d.kind) {
			devs = append(devs, d)
		}
	}
	a.mu.Unlock()

	infos := make([]DeviceInfo, 0, len(devs))
	for _, d := range devs {
		if info, err := a.info(d); err == nil {
			infos = append(infos, info)
		}
	}
	return infos
}

// Info returns detailed information about the device at index
func (a *Adapter) Info(index int) (DeviceInfo, error) {
	d, err := a.device(index)
	if err != nil {
		return DeviceInfo{}, err
	}
	return a.info(d)
}

func (a *Adapter) info(d *device) (DeviceInfo, error) {
	info := DeviceInfo{
		Index:         d.index,
		Peer:          d.peer,
		Kind:          d.kind,
		Description:   getDeviceDescription(d.kind),
		RTSMap:        d.rtsMap,
		DTRMap:        d.dtrMap,
		DTRAtOpen:     d.dtrAtOpen,
		PeerRTSMap:    d.rtsMap,
		PeerDTRMap:    d.dtrMap,
		PeerDTRAtOpen: d.dtrAtOpen,
	}
	// the peer's wiring never changes, so it can be read without its lock
	if p := a.peerOf(d); p != nil {
		info.PeerRTSMap = p.rtsMap
		info.PeerDTRMap = p.dtrMap
		info.PeerDTRAtOpen = p.dtrAtOpen
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dead {
		return DeviceInfo{}, ErrDeviceGone
	}
	info.MCR = d.mcr
	info.MSR = d.msr
	info.Params = d.params
	info.Counters = d.counters
	info.Open = d.sess != nil
	info.FaultyCable = d.faultyCable
	info.Waiting = d.waiters > 0
	return info, nil
}

// getDeviceDescription provides human-readable descriptions for the device kinds
func getDeviceDescription(k DeviceKind) string {
	switch k {
	case StandardNullModem:
		return "Null-modem, standard wiring"
	case CustomNullModem:
		return "Null-modem, custom wiring"
	case StandardLoopback:
		return "Loopback, standard wiring"
	case CustomLoopback:
		return "Loopback, custom wiring"
	default:
		return "Virtual serial device"
	}
}

var portLinkPattern = regexp.MustCompile(`^ttyV\d+$`)

// ListPorts returns the host paths of the endpoints exposed in dir, sorted
// by name. Only links that resolve to a character device are returned.
func ListPorts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var ports []string
	for _, entry := range entries {
		if !portLinkPattern.MatchString(entry.Name()) {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		if isCharacterDevice(fullPath) {
			ports = append(ports, fullPath)
		}
	}

	sort.Strings(ports)
	return ports, nil
}

// PortPath returns the host path the endpoint at index is exposed under in dir.
func PortPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("ttyV%d", index))
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
