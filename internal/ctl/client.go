package ctl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	vserial "github.com/allbin/go-vserial"
)

// Client sends requests to a control channel server.
type Client struct {
	path string
}

// NewClient returns a client for the socket at path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

// Do sends one raw request line and returns the reply payload.
func (c *Client) Do(ctx context.Context, request string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.path)
	if err != nil {
		return "", fmt.Errorf("connect to %s: %w", c.path, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimRight(request, "\r\n")); err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %w", vserial.ErrInterrupted, ctx.Err())
		}
		return "", fmt.Errorf("read reply: %w", err)
	}
	return parseReply(line)
}

// Exec runs a create or destroy command and returns the indices involved.
func (c *Client) Exec(ctx context.Context, cmd vserial.Command) ([]int, error) {
	payload, err := c.Do(ctx, cmd.String())
	if err != nil {
		return nil, err
	}
	if payload == "" {
		return nil, nil
	}
	var indices []int
	for _, f := range strings.Split(payload, sep) {
		idx, err := vserial.ParseIndex(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reply %q", vserial.ErrIO, payload)
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// Status returns the fixed-width adapter status record.
func (c *Client) Status(ctx context.Context) (string, error) {
	return c.Do(ctx, VerbQuery)
}

// List returns the devices matching filter ("all" when empty).
func (c *Client) List(ctx context.Context, filter string) ([]vserial.DeviceInfo, error) {
	req := VerbList
	if filter != "" {
		req += sep + filter
	}
	payload, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	var infos []vserial.DeviceInfo
	if err := json.Unmarshal([]byte(payload), &infos); err != nil {
		return nil, fmt.Errorf("%w: decode list: %w", vserial.ErrIO, err)
	}
	return infos, nil
}

// Info returns the state of one device.
func (c *Client) Info(ctx context.Context, index int) (vserial.DeviceInfo, error) {
	var info vserial.DeviceInfo
	payload, err := c.Do(ctx, VerbInfo+sep+vserial.FormatIndex(index))
	if err != nil {
		return info, err
	}
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return info, fmt.Errorf("%w: decode info: %w", vserial.ErrIO, err)
	}
	return info, nil
}

// Attr reads one named attribute of a device.
func (c *Client) Attr(ctx context.Context, index int, name string) (string, error) {
	return c.Do(ctx, strings.Join([]string{VerbAttr, vserial.FormatIndex(index), name}, sep))
}

// Fault injects a line event on a device.
func (c *Client) Fault(ctx context.Context, index int, event byte) error {
	_, err := c.Do(ctx, strings.Join([]string{VerbEvent, vserial.FormatIndex(index), string(event)}, sep))
	return err
}

// Hangup forces the session attached to a device into the hung-up state.
func (c *Client) Hangup(ctx context.Context, index int) error {
	_, err := c.Do(ctx, VerbHup+sep+vserial.FormatIndex(index))
	return err
}

// SetModemLines drives a device's control lines and returns its registers
// afterwards.
func (c *Client) SetModemLines(ctx context.Context, index int, set, clear vserial.LineMask) (mcr, msr vserial.LineMask, err error) {
	payload, err := c.Do(ctx, strings.Join([]string{VerbMctl, vserial.FormatIndex(index), set.String(), clear.String()}, sep))
	if err != nil {
		return 0, 0, err
	}
	m, s, ok := strings.Cut(payload, sep)
	if !ok {
		return 0, 0, fmt.Errorf("%w: reply %q", vserial.ErrIO, payload)
	}
	if mcr, err = vserial.ParseLineMask(m); err != nil {
		return 0, 0, fmt.Errorf("%w: reply %q", vserial.ErrIO, payload)
	}
	if msr, err = vserial.ParseLineMask(s); err != nil {
		return 0, 0, fmt.Errorf("%w: reply %q", vserial.ErrIO, payload)
	}
	return mcr, msr, nil
}

// Wait blocks until one of the signals in mask changes on a device and
// returns the ones that did. Cancelling ctx abandons the wait on the server.
func (c *Client) Wait(ctx context.Context, index int, mask vserial.SignalMask) (vserial.SignalMask, error) {
	payload, err := c.Do(ctx, strings.Join([]string{VerbWait, vserial.FormatIndex(index), mask.String()}, sep))
	if err != nil {
		return 0, err
	}
	changed, err := vserial.ParseSignalMask(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: reply %q", vserial.ErrIO, payload)
	}
	return changed, nil
}
