package vserial

import (
	"fmt"
	"strconv"
	"strings"
)

// EndpointSpec describes one endpoint to create.
type EndpointSpec struct {
	Index     int // AutoIndex picks the lowest free slot
	RTSMap    LineMask
	DTRMap    LineMask
	DTRAtOpen bool
}

// PairSpec describes both ends of a null-modem cable.
type PairSpec struct {
	A, B EndpointSpec
}

// StandardEndpoint returns the canonical null-modem wiring at index.
func StandardEndpoint(index int) EndpointSpec {
	return EndpointSpec{Index: index, RTSMap: StandardRTSMap, DTRMap: StandardDTRMap, DTRAtOpen: true}
}

// CommandKind identifies a control command.
type CommandKind int

const (
	CommandNullModem CommandKind = iota
	CommandLoopback
	CommandDestroy
	CommandDestroyAll
)

func (k CommandKind) String() string {
	switch k {
	case CommandNullModem:
		return "gennm"
	case CommandLoopback:
		return "genlb"
	case CommandDestroy, CommandDestroyAll:
		return "del"
	default:
		return "unknown"
	}
}

// Command is a parsed control line.
type Command struct {
	Kind  CommandKind
	Pair  PairSpec // CommandNullModem uses both ends, CommandLoopback only A
	Index int      // CommandDestroy
}

const (
	indexWidth  = 5
	autoIndexID = "xxxxx"
	flagSet     = "y"
	flagUnset   = "x"
	fieldSep    = "#"
)

// ParseCommand parses one control line. Parsing is strict: any field that
// is not exactly in the expected format rejects the whole line.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	fields := strings.Split(line, fieldSep)

	switch fields[0] {
	case "gennm":
		return parseCreate(fields, false)
	case "genlb":
		return parseCreate(fields, true)
	case "del":
		if len(fields) < 2 {
			return Command{}, &CommandError{Field: "command", Value: line, Err: ErrInvalidCommand}
		}
		if fields[1] == autoIndexID {
			return Command{Kind: CommandDestroyAll, Index: AutoIndex}, nil
		}
		idx, err := parseIndex("index", fields[1])
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: CommandDestroy, Index: idx}, nil
	default:
		return Command{}, &CommandError{Field: "command", Value: fields[0], Err: ErrInvalidCommand}
	}
}

// parseCreate handles gennm and genlb, which share one layout:
// cmd#idx1#idx2#rts1#dtr1#rts2#dtr2#dao1#dao2
func parseCreate(fields []string, loopback bool) (Command, error) {
	if len(fields) != 9 {
		return Command{}, &CommandError{Field: "command", Value: strings.Join(fields, fieldSep), Err: ErrInvalidCommand}
	}

	var cmd Command
	var err error
	if cmd.Pair.A, err = parseEndpoint(fields[1], fields[3], fields[4], fields[7], "1"); err != nil {
		return Command{}, err
	}
	if loopback {
		cmd.Kind = CommandLoopback
		for _, f := range []struct{ name, got, want string }{
			{"idx2", fields[2], autoIndexID},
			{"rts2", fields[5], unconnectedPinMap},
			{"dtr2", fields[6], unconnectedPinMap},
			{"dao2", fields[8], flagUnset},
		} {
			if f.got != f.want {
				return Command{}, &CommandError{Field: f.name, Value: f.got, Err: ErrInvalidCommand}
			}
		}
		return cmd, nil
	}

	cmd.Kind = CommandNullModem
	if cmd.Pair.B, err = parseEndpoint(fields[2], fields[5], fields[6], fields[8], "2"); err != nil {
		return Command{}, err
	}
	return cmd, nil
}

func parseEndpoint(idx, rts, dtr, dao, side string) (EndpointSpec, error) {
	var ep EndpointSpec
	var err error
	if idx == autoIndexID {
		ep.Index = AutoIndex
	} else if ep.Index, err = parseIndex("idx"+side, idx); err != nil {
		return ep, err
	}
	if ep.RTSMap, err = ParsePinMap(rts, pinRTS); err != nil {
		return ep, &CommandError{Field: "rts" + side, Value: rts, Err: err}
	}
	if ep.DTRMap, err = ParsePinMap(dtr, pinDTR); err != nil {
		return ep, &CommandError{Field: "dtr" + side, Value: dtr, Err: err}
	}
	switch dao {
	case flagSet:
		ep.DTRAtOpen = true
	case flagUnset:
	default:
		return ep, &CommandError{Field: "dao" + side, Value: dao, Err: ErrInvalidCommand}
	}
	return ep, nil
}

func parseIndex(field, s string) (int, error) {
	if len(s) != indexWidth {
		return 0, &CommandError{Field: field, Value: s, Err: ErrInvalidCommand}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, &CommandError{Field: field, Value: s, Err: ErrInvalidCommand}
		}
	}
	n, _ := strconv.Atoi(s)
	return n, nil
}

// ParseIndex parses a five digit index field. "xxxxx" yields AutoIndex.
func ParseIndex(s string) (int, error) {
	if s == autoIndexID {
		return AutoIndex, nil
	}
	return parseIndex("index", s)
}

// FormatIndex renders i as a five digit index field, or "xxxxx" for
// AutoIndex.
func FormatIndex(i int) string { return formatIndex(i) }

func formatIndex(i int) string {
	if i < 0 {
		return autoIndexID
	}
	return fmt.Sprintf("%05d", i)
}

func formatFlag(b bool) string {
	if b {
		return flagSet
	}
	return flagUnset
}

// String renders the command in its wire format.
func (c Command) String() string {
	a, b := c.Pair.A, c.Pair.B
	switch c.Kind {
	case CommandNullModem:
		return strings.Join([]string{"gennm",
			formatIndex(a.Index), formatIndex(b.Index),
			FormatPinMap(pinRTS, a.RTSMap), FormatPinMap(pinDTR, a.DTRMap),
			FormatPinMap(pinRTS, b.RTSMap), FormatPinMap(pinDTR, b.DTRMap),
			formatFlag(a.DTRAtOpen), formatFlag(b.DTRAtOpen),
		}, fieldSep)
	case CommandLoopback:
		return strings.Join([]string{"genlb",
			formatIndex(a.Index), autoIndexID,
			FormatPinMap(pinRTS, a.RTSMap), FormatPinMap(pinDTR, a.DTRMap),
			unconnectedPinMap, unconnectedPinMap,
			formatFlag(a.DTRAtOpen), flagUnset,
		}, fieldSep)
	case CommandDestroy:
		return "del" + fieldSep + formatIndex(c.Index)
	case CommandDestroyAll:
		return "del" + fieldSep + autoIndexID
	default:
		return ""
	}
}

// Result is the outcome of an executed control command: the indices that
// were created or destroyed.
type Result struct {
	Command Command
	Indices []int
}

func (r Result) String() string {
	parts := make([]string, len(r.Indices))
	for i, idx := range r.Indices {
		parts[i] = formatIndex(idx)
	}
	return strings.Join(parts, fieldSep)
}

// Exec parses and runs one control line.
func (a *Adapter) Exec(line string) (Result, error) {
	cmd, err := ParseCommand(line)
	if err != nil {
		return Result{}, err
	}
	res := Result{Command: cmd}
	switch cmd.Kind {
	case CommandNullModem:
		idx, err := a.CreateNullModem(cmd.Pair)
		if err != nil {
			return res, err
		}
		res.Indices = idx[:]
	case CommandLoopback:
		idx, err := a.CreateLoopback(cmd.Pair.A)
		if err != nil {
			return res, err
		}
		res.Indices = []int{idx}
	case CommandDestroy:
		peer := AutoIndex
		if d := a.lookup(cmd.Index); d != nil && !d.loopback() {
			peer = d.peer
		}
		if err := a.Destroy(cmd.Index); err != nil {
			return res, err
		}
		res.Indices = []int{cmd.Index}
		if peer != AutoIndex {
			res.Indices = append(res.Indices, peer)
		}
	case CommandDestroyAll:
		a.DestroyAll()
	}
	return res, nil
}

// builder owns everything a create command has acquired so far and gives
// it back unless commit is called.
type builder struct {
	a          *Adapter
	reserved   []int
	installed  []*device
	registered []int
	committed  bool
}

// reserve allocates slots for the requested indices, explicit ones first so
// an auto-assigned end never steals a slot the other end asked for.
// Callers hold a.mu.
func (b *builder) reserve(requested ...int) ([]int, error) {
	out := make([]int, len(requested))
	for pass := 0; pass < 2; pass++ {
		for i, r := range requested {
			if (r == AutoIndex) != (pass == 1) {
				continue
			}
			idx, err := b.a.allocateSlot(r)
			if err != nil {
				return nil, err
			}
			b.reserved = append(b.reserved, idx)
			out[i] = idx
		}
	}
	return out, nil
}

// install publishes the devices. Callers hold a.mu.
func (b *builder) install(devs ...*device) {
	for _, d := range devs {
		b.a.install(d)
		b.installed = append(b.installed, d)
	}
}

// register announces the installed devices to the transport layer. It must
// run without a.mu since registration may open the endpoint.
func (b *builder) register() error {
	if b.a.registrar == nil {
		return nil
	}
	for _, d := range b.installed {
		if err := b.a.registrar.Register(b.a, d.index); err != nil {
			return fmt.Errorf("register device %d: %w", d.index, err)
		}
		b.registered = append(b.registered, d.index)
	}
	return nil
}

func (b *builder) commit() {
	b.committed = true
}

// rollback undoes every step taken so far. It takes a.mu itself.
func (b *builder) rollback() {
	if b.committed {
		return
	}
	for i := len(b.registered) - 1; i >= 0; i-- {
		b.a.registrar.Unregister(b.registered[i])
	}

	// a record destroyed meanwhile has its slot freed by that destroy
	var release []int
	b.a.mu.Lock()
	for _, idx := range b.reserved {
		d := b.a.slots[idx]
		switch {
		case d != nil && b.owns(d):
			b.a.slots[idx] = nil
			release = append(release, idx)
		case d == nil && !b.installedAt(idx):
			release = append(release, idx)
		}
	}
	b.a.mu.Unlock()

	for _, d := range b.installed {
		if s := d.kill(); s != nil {
			s.hangup(ErrDeviceGone)
		}
	}

	b.a.mu.Lock()
	for _, idx := range release {
		b.a.freeSlot(idx)
	}
	b.a.mu.Unlock()
}

func (b *builder) owns(d *device) bool {
	for _, o := range b.installed {
		if o == d {
			return true
		}
	}
	return false
}

func (b *builder) installedAt(index int) bool {
	for _, o := range b.installed {
		if o.index == index {
			return true
		}
	}
	return false
}

// CreateNullModem creates a cross-wired pair and returns the indices of
// both ends. Nothing is left allocated when it fails.
func (a *Adapter) CreateNullModem(spec PairSpec) ([2]int, error) {
	if spec.A.Index != AutoIndex && spec.A.Index == spec.B.Index {
		return [2]int{}, fmt.Errorf("%w: index %d requested for both ends", ErrSlotInUse, spec.A.Index)
	}

	b := &builder{a: a}
	defer b.rollback()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return [2]int{}, ErrAdapterClosed
	}
	idx, err := b.reserve(spec.A.Index, spec.B.Index)
	if err != nil {
		a.mu.Unlock()
		return [2]int{}, err
	}
	kind := CustomNullModem
	if isStandardWiring(spec.A.RTSMap, spec.A.DTRMap, spec.A.DTRAtOpen) &&
		isStandardWiring(spec.B.RTSMap, spec.B.DTRMap, spec.B.DTRAtOpen) {
		kind = StandardNullModem
	}
	da := newDevice(idx[0], idx[1], spec.A.RTSMap, spec.A.DTRMap, spec.A.DTRAtOpen, kind)
	db := newDevice(idx[1], idx[0], spec.B.RTSMap, spec.B.DTRMap, spec.B.DTRAtOpen, kind)
	b.install(da, db)
	a.mu.Unlock()

	if err := b.register(); err != nil {
		return [2]int{}, err
	}
	b.commit()

	spec.A.Index, spec.B.Index = idx[0], idx[1]
	a.mu.Lock()
	a.lastPair = &spec
	a.mu.Unlock()

	logger().Debug().Int("a", idx[0]).Int("b", idx[1]).Str("kind", kind.String()).Msg("null-modem pair created")
	return [2]int{idx[0], idx[1]}, nil
}

// CreateLoopback creates a self-wired endpoint and returns its index.
func (a *Adapter) CreateLoopback(spec EndpointSpec) (int, error) {
	b := &builder{a: a}
	defer b.rollback()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return 0, ErrAdapterClosed
	}
	idx, err := b.reserve(spec.Index)
	if err != nil {
		a.mu.Unlock()
		return 0, err
	}
	kind := CustomLoopback
	if isStandardWiring(spec.RTSMap, spec.DTRMap, spec.DTRAtOpen) {
		kind = StandardLoopback
	}
	b.install(newDevice(idx[0], idx[0], spec.RTSMap, spec.DTRMap, spec.DTRAtOpen, kind))
	a.mu.Unlock()

	if err := b.register(); err != nil {
		return 0, err
	}
	b.commit()

	spec.Index = idx[0]
	a.mu.Lock()
	a.lastLoopback = &spec
	a.mu.Unlock()

	logger().Debug().Int("index", idx[0]).Str("kind", kind.String()).Msg("loopback created")
	return idx[0], nil
}
