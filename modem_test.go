package vserial

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateLinesPinMaps(t *testing.T) {
	tests := []struct {
		name    string
		rtsMap  LineMask
		dtrMap  LineMask
		set     LineMask
		clear   LineMask
		wantMSR LineMask
	}{
		{"standard rts", StandardRTSMap, StandardDTRMap, LineRTS, 0, LineCTS},
		{"standard dtr", StandardRTSMap, StandardDTRMap, LineDTR, 0, LineDCD | LineDSR},
		{"standard both", StandardRTSMap, StandardDTRMap, ControlLines, 0, LineCTS | LineDCD | LineDSR},
		{"rts to ring", LineRI, 0, LineRTS, 0, LineRI},
		{"unconnected", 0, 0, ControlLines, 0, 0},
		{"shared line, one dropped", LineDCD, LineDCD, LineRTS, LineDTR, LineDCD},
		{"set wins over clear", StandardRTSMap, StandardDTRMap, LineRTS, LineRTS, LineCTS},
		{"status bits in set are ignored", StandardRTSMap, StandardDTRMap, LineCTS | LineRI, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdapter(t)
			idx, err := a.CreateNullModem(PairSpec{
				A: EndpointSpec{Index: AutoIndex, RTSMap: tt.rtsMap, DTRMap: tt.dtrMap},
				B: EndpointSpec{Index: AutoIndex},
			})
			require.NoError(t, err)

			require.NoError(t, a.SetModemLines(idx[0], tt.set, tt.clear))
			_, msr, err := a.ModemLines(idx[1])
			require.NoError(t, err)
			assert.Equal(t, tt.wantMSR, msr)

			// a second identical call changes nothing
			before := testDevice(t, a, idx[1]).counters
			require.NoError(t, a.SetModemLines(idx[0], tt.set, tt.clear))
			_, again, _ := a.ModemLines(idx[1])
			assert.Equal(t, msr, again)
			assert.Equal(t, before, testDevice(t, a, idx[1]).counters)
		})
	}
}

func TestUpdateLinesCountsEdges(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateNullModem(PairSpec{
		A: EndpointSpec{Index: AutoIndex, RTSMap: LineCTS | LineRI, DTRMap: LineDCD | LineDSR},
		B: EndpointSpec{Index: AutoIndex},
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.SetModemLines(idx[0], ControlLines, 0))
		require.NoError(t, a.SetModemLines(idx[0], 0, ControlLines))
	}

	c := testDevice(t, a, idx[1]).counters
	assert.EqualValues(t, 6, c.CTS, "CTS counts both edges")
	assert.EqualValues(t, 6, c.DCD)
	assert.EqualValues(t, 6, c.DSR)
	assert.EqualValues(t, 6, c.RI, "pin-mapped RI counts both edges")
}

func TestUpdateLinesLoopback(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateLoopback(EndpointSpec{Index: AutoIndex, RTSMap: StandardRTSMap, DTRMap: StandardDTRMap})
	require.NoError(t, err)

	require.NoError(t, a.SetModemLines(idx, LineDTR, 0))
	mcr, msr, err := a.ModemLines(idx)
	require.NoError(t, err)
	assert.Equal(t, LineDTR, mcr)
	assert.Equal(t, LineDCD|LineDSR, msr)
}

func TestUpdateLinesAfterPeerDestroyed(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	d := testDevice(t, a, idx[0])
	require.NoError(t, a.Destroy(idx[1]))

	assert.ErrorIs(t, a.updateLines(d, LineRTS, 0), ErrDeviceGone)
	assert.ErrorIs(t, a.SetModemLines(idx[0], LineRTS, 0), ErrDeviceNotFound)
}

func TestConcurrentCountersAreExact(t *testing.T) {
	a := newTestAdapter(t)
	idx, err := a.CreateNullModem(PairSpec{
		A: EndpointSpec{Index: AutoIndex, RTSMap: LineCTS},
		B: EndpointSpec{Index: AutoIndex, RTSMap: LineCTS},
	})
	require.NoError(t, err)
	pa := openTestPort(t, a, idx[0])
	pb := openTestPort(t, a, idx[1], WithRxBufferSize(1<<20))

	const workers, rounds = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				pa.Write([]byte{'x'})
			}
		}()
	}
	// toggling RTS on the other end contends for the same pair of locks
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < rounds; i++ {
			pb.SetRTS(i%2 == 0)
		}
	}()
	wg.Wait()

	ca, _ := pa.Counters()
	cb, _ := pb.Counters()
	assert.EqualValues(t, workers*rounds, ca.TX)
	assert.EqualValues(t, workers*rounds, cb.RX)
	assert.EqualValues(t, rounds, ca.CTS)
}

// An observer holding both locks must never see the MCR of one end
// disagree with the MSR it drives on the other.
func TestMCRAndPeerMSRChangeTogether(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	da, db := testDevice(t, a, idx[0]), testDevice(t, a, idx[1])

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			if i%2 == 0 {
				a.SetModemLines(idx[0], ControlLines, 0)
			} else {
				a.SetModemLines(idx[0], 0, ControlLines)
			}
		}
	}()

	for i := 0; i < 2000; i++ {
		unlock := lockPair(da, db)
		rts := da.mcr&LineRTS != 0
		cts := db.msr&LineCTS != 0
		dtr := da.mcr&LineDTR != 0
		dcd := db.msr&LineDCD != 0
		unlock()
		if rts != cts || dtr != dcd {
			close(stop)
			wg.Wait()
			t.Fatalf("torn update: rts=%v cts=%v dtr=%v dcd=%v", rts, cts, dtr, dcd)
		}
	}
	close(stop)
	wg.Wait()
}

func TestLockPairOrder(t *testing.T) {
	a := newTestAdapter(t)
	idx := newStandardPair(t, a)
	da, db := testDevice(t, a, idx[0]), testDevice(t, a, idx[1])

	// opposite argument orders from two goroutines must not deadlock
	var wg sync.WaitGroup
	for _, pair := range [][2]*device{{da, db}, {db, da}} {
		wg.Add(1)
		go func(x, y *device) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				lockPair(x, y)()
			}
		}(pair[0], pair[1])
	}
	wg.Wait()

	// a loopback locks its single record once
	lockPair(da, da)()
	lockPair(da, nil)()
}
