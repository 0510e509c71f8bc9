package vserial

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestListPorts(t *testing.T) {
	dir := t.TempDir()

	mustSymlink := func(target, name string) {
		t.Helper()
		if err := os.Symlink(target, filepath.Join(dir, name)); err != nil {
			t.Fatalf("Symlink failed: %v", err)
		}
	}
	mustSymlink("/dev/null", "ttyV3")
	mustSymlink("/dev/zero", "ttyV0")
	mustSymlink("/dev/null", "ttyUSB0")              // not ours
	mustSymlink(filepath.Join(dir, "gone"), "ttyV9") // dangling
	if err := os.WriteFile(filepath.Join(dir, "ttyV7"), nil, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	ports, err := ListPorts(dir)
	if err != nil {
		t.Fatalf("ListPorts failed: %v", err)
	}

	want := []string{filepath.Join(dir, "ttyV0"), filepath.Join(dir, "ttyV3")}
	if diff := cmp.Diff(want, ports); diff != "" {
		t.Errorf("ListPorts mismatch (-want +got):\n%s", diff)
	}

	if _, err := ListPorts(filepath.Join(dir, "missing")); err == nil {
		t.Error("Expected error for a missing directory")
	}
}

func TestIsCharacterDevice(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"/dev/null", true},     // Should exist and be a character device
		{"/dev/zero", true},     // Should exist and be a character device
		{"/tmp", false},         // Directory, not character device
		{"/nonexistent", false}, // Doesn't exist
	}

	for _, test := range tests {
		result := isCharacterDevice(test.path)
		if result != test.expected {
			t.Errorf("isCharacterDevice(%s) = %v, expected %v", test.path, result, test.expected)
		}
	}
}

func TestPortPath(t *testing.T) {
	if got := PortPath("/run/vserial", 12); got != "/run/vserial/ttyV12" {
		t.Errorf("PortPath = %s, want /run/vserial/ttyV12", got)
	}
}

func TestGetDeviceDescription(t *testing.T) {
	tests := []struct {
		kind     DeviceKind
		expected string
	}{
		{StandardNullModem, "Null-modem, standard wiring"},
		{CustomNullModem, "Null-modem, custom wiring"},
		{StandardLoopback, "Loopback, standard wiring"},
		{CustomLoopback, "Loopback, custom wiring"},
		{DeviceKind(42), "Virtual serial device"},
	}

	for _, test := range tests {
		result := getDeviceDescription(test.kind)
		if result != test.expected {
			t.Errorf("getDeviceDescription(%v) = %s, expected %s", test.kind, result, test.expected)
		}
	}
}

func TestList(t *testing.T) {
	a := newTestAdapter(t)

	std := newStandardPair(t, a)
	custom, err := a.CreateNullModem(PairSpec{
		A: EndpointSpec{Index: AutoIndex, RTSMap: LineCTS | LineRI, DTRMap: LineDSR, DTRAtOpen: true},
		B: StandardEndpoint(AutoIndex),
	})
	require.NoError(t, err)
	lb, err := a.CreateLoopback(StandardEndpoint(AutoIndex))
	require.NoError(t, err)

	indices := func(infos []DeviceInfo) []int {
		var out []int
		for _, info := range infos {
			out = append(out, info.Index)
		}
		return out
	}

	tests := []struct {
		filter DeviceFilter
		want   []int
	}{
		{FilterAll, []int{std[0], std[1], custom[0], custom[1], lb}},
		{FilterNullModem, []int{std[0], std[1], custom[0], custom[1]}},
		{FilterLoopback, []int{lb}},
		{FilterStandard, []int{std[0], std[1], lb}},
		{FilterCustom, []int{custom[0], custom[1]}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, indices(a.List(tt.filter))); diff != "" {
			t.Errorf("List(%d) mismatch (-want +got):\n%s", tt.filter, diff)
		}
	}

	info, err := a.Info(custom[1])
	require.NoError(t, err)
	want := DeviceInfo{
		Index:         custom[1],
		Peer:          custom[0],
		Kind:          CustomNullModem,
		Description:   "Null-modem, custom wiring",
		RTSMap:        StandardRTSMap,
		DTRMap:        StandardDTRMap,
		PeerRTSMap:    LineCTS | LineRI,
		PeerDTRMap:    LineDSR,
		DTRAtOpen:     true,
		PeerDTRAtOpen: true,
		Params:        DefaultConfig().lineParams(),
	}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("Info mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDeviceFilter(t *testing.T) {
	for name, want := range filterNames {
		got, err := ParseDeviceFilter(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseDeviceFilter("serial")
	require.ErrorIs(t, err, ErrInvalidCommand)
}
