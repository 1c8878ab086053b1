package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"fnirsi_ps"
	"fnirsi_ps/internal/logger"
	"fnirsi_ps/internal/protocol"
	"fnirsi_ps/internal/transport"
)

const (
	defaultDelay       = 500 * time.Millisecond
	defaultReadTimeout = 1500 * time.Millisecond
	defaultRetries     = 3

	// statFragments is how many log fragments a stat read merges into one
	// record; the device interleaves telemetry/limits/target fragments, so a
	// few are needed for a reasonably complete snapshot.
	statFragments = 3
	// readBackFragments bounds how many fragments a verification read
	// inspects before giving up on seeing the field it wants.
	readBackFragments = 10
	// flushAttempts bounds the drain loop after logging is stopped.
	flushAttempts = 3

	separatorLine = "#------------------------------------------------------------"
)

// Options configures a Processor. Zero values pick the defaults above;
// tests set Delay to a negative value to disable pacing.
type Options struct {
	Delay       time.Duration
	ReadTimeout time.Duration
	Retries     int
	Out         io.Writer
}

// Processor owns one serial session for the lifetime of a CLI invocation
// and executes command tokens strictly in order. Single-threaded by design:
// the ordering of tokens is how users script ramp/hold/ramp experiments.
type Processor struct {
	conn  Conn
	model *protocol.Model
	rep   Reporter
	log   *logger.Logger

	delay       time.Duration
	readTimeout time.Duration
	retries     int
	out         io.Writer

	check bool   // sticky once the `check` token is seen
	buf   []byte // residual receive bytes between fragment extractions
}

// settable maps setting tokens to their protocol operation and the field a
// verification read compares against.
var settable = map[string]struct {
	op    protocol.Op
	field protocol.Field
}{
	"v":   {protocol.OpSetVoltage, protocol.FieldVoltage},
	"c":   {protocol.OpSetCurrent, protocol.FieldCurrent},
	"ovp": {protocol.OpSetOVP, protocol.FieldOVP},
	"ocp": {protocol.OpSetOCP, protocol.FieldOCP},
	"opp": {protocol.OpSetOPP, protocol.FieldOPP},
}

// NewProcessor builds a processor around an open connection. The options
// struct is the only configuration path; there is no ambient global state.
func NewProcessor(conn Conn, model *protocol.Model, rep Reporter, log *logger.Logger, opts Options) *Processor {
	if opts.Delay == 0 {
		opts.Delay = defaultDelay
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = defaultReadTimeout
	}
	if opts.Retries == 0 {
		opts.Retries = defaultRetries
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Processor{
		conn:        conn,
		model:       model,
		rep:         rep,
		log:         log,
		delay:       opts.Delay,
		readTimeout: opts.ReadTimeout,
		retries:     opts.Retries,
		out:         opts.Out,
	}
}

// Run executes the tokens in the order given. The first failure aborts the
// remainder; commands already executed are not rolled back, the device has
// no undo.
func (p *Processor) Run(ctx context.Context, tokens []string) error {
	for _, tok := range tokens {
		if err := p.exec(ctx, tok); err != nil {
			return fmt.Errorf("command %q: %w", tok, err)
		}
	}
	return nil
}

func (p *Processor) exec(ctx context.Context, tok string) error {
	d, err := ParseToken(tok)
	if err != nil {
		return err
	}

	switch d.Name {
	case "echo":
		_, err := fmt.Fprintln(p.out, d.Value)
		return err
	case "sep":
		_, err := fmt.Fprintln(p.out, separatorLine)
		return err
	case "sleep":
		secs, err := d.Float()
		if err != nil {
			return err
		}
		return p.pause(ctx, time.Duration(secs*float64(time.Second)))
	case "check":
		p.check = true
		p.log.Debugw("double-check mode enabled")
		return nil
	case "on":
		return p.sendOp(ctx, protocol.OpOutputOn)
	case "off":
		return p.sendOp(ctx, protocol.OpOutputOff)
	case "noprotect":
		return p.sendOp(ctx, protocol.OpProtectOff)
	case "mem":
		switch strings.ToLower(d.Value) {
		case "m1":
			return p.sendOp(ctx, protocol.OpMemoryM1)
		case "m2":
			return p.sendOp(ctx, protocol.OpMemoryM2)
		}
		return fmt.Errorf("mem: unknown slot %q, want m1 or m2", d.Value)
	case "cmd":
		if !d.HasValue || d.Value == "" {
			return errors.New("cmd requires a raw frame payload")
		}
		frames, err := protocol.Encode(p.model, protocol.Command{Op: protocol.OpRaw, Text: d.Value})
		if err != nil {
			return err
		}
		return p.send(ctx, frames)
	case "dump":
		return p.dump(ctx)
	case "flush":
		return p.flush(ctx)
	case "stat":
		return p.stat(ctx)
	case "trace":
		n, err := d.Int()
		if err != nil {
			return err
		}
		return p.Trace(ctx, n, p.rep.Report)
	case "ohp":
		secs, err := d.Int()
		if err != nil {
			return err
		}
		return p.setOverHour(ctx, secs)
	}

	if s, ok := settable[d.Name]; ok {
		v, err := d.Float()
		if err != nil {
			return err
		}
		return p.setField(ctx, s.op, s.field, v)
	}
	return fmt.Errorf("unknown command %q", d.Name)
}

// setOverHour programs the over-hour limit: a zero disables the timer, a
// positive count sets it and enables it.
func (p *Processor) setOverHour(ctx context.Context, seconds int) error {
	if seconds <= 0 {
		return p.sendOp(ctx, protocol.OpOHPDisable)
	}
	if err := p.setField(ctx, protocol.OpSetOHP, protocol.FieldOHP, float64(seconds)); err != nil {
		return err
	}
	return p.sendOp(ctx, protocol.OpOHPEnable)
}

// setField encodes and sends a setting, verifying it by read-back when
// double-check mode is active.
//
// The verification exists because the checksum-less link is known to drop
// bytes, letting the device silently apply a wrong value (a dropped digit
// turns 1.5 V into 15 V). It trades latency for assurance, and it is
// ineffective while the output is already enabled: the read-back of a live
// value may legitimately differ from the just-set target during settling.
func (p *Processor) setField(ctx context.Context, op protocol.Op, field protocol.Field, value float64) error {
	frames, err := protocol.Encode(p.model, protocol.Command{Op: op, Arg: value})
	if err != nil {
		return err
	}
	if !p.check {
		return p.send(ctx, frames)
	}

	tol := p.model.Tolerance(field)
	observed := math.NaN()
	for attempt := 0; attempt <= p.retries; attempt++ {
		if err := p.send(ctx, frames); err != nil {
			return err
		}
		got, err := p.readBack(ctx, field)
		if err != nil {
			if errors.Is(err, transport.ErrReadTimeout) {
				p.log.Debugw("read-back silent, resending", "field", field.String(), "attempt", attempt)
				continue
			}
			return err
		}
		observed = got
		if math.Abs(got-value) <= tol {
			p.log.Debugw("verified", "field", field.String(), "value", value)
			return nil
		}
		p.log.Warnw("read-back mismatch, resending",
			"field", field.String(), "sent", value, "observed", got, "attempt", attempt)
	}
	return &VerificationFailedError{Field: field.String(), Sent: value, Observed: observed, Resends: p.retries}
}

// readBack restarts logging and waits for the first fragment that carries
// the given field, returning its decoded value.
func (p *Processor) readBack(ctx context.Context, field protocol.Field) (float64, error) {
	if err := p.sendOp(ctx, protocol.OpLoggingOff); err != nil {
		return 0, err
	}
	if err := p.sendOp(ctx, protocol.OpLoggingOn); err != nil {
		return 0, err
	}
	p.buf = nil

	for i := 0; i < readBackFragments; i++ {
		u, err := p.nextUpdate(ctx)
		if err != nil {
			return 0, err
		}
		if v, ok := u.FieldValue(field); ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("no %s fragment within %d read-backs: %w",
		field.String(), readBackFragments, transport.ErrReadTimeout)
}

// stat takes one merged snapshot: drain, start logging, fold a few
// fragments into a single record, report it. Never retries or verifies.
func (p *Processor) stat(ctx context.Context) error {
	if err := p.flush(ctx); err != nil {
		return err
	}
	if err := p.sendOp(ctx, protocol.OpLoggingOn); err != nil {
		return err
	}

	var rec fnirsi_ps.StatusRecord
	merged := 0
	for i := 0; i < statFragments; i++ {
		u, err := p.nextUpdate(ctx)
		if err != nil {
			if errors.Is(err, transport.ErrReadTimeout) && merged > 0 {
				break
			}
			return err
		}
		u.Apply(&rec)
		merged++
	}
	rec.SampledAt = time.Now().UTC()
	return p.rep.Report(rec)
}

// flush stops logging and drains whatever the device already queued, so
// the next read starts on a clean stream.
func (p *Processor) flush(ctx context.Context) error {
	if err := p.sendOp(ctx, protocol.OpLoggingOff); err != nil {
		return err
	}
	p.buf = nil

	for i := 0; i < flushAttempts; i++ {
		chunk, err := p.conn.Read(p.readTimeout)
		if errors.Is(err, transport.ErrReadTimeout) {
			return nil
		}
		if err != nil {
			return err
		}
		p.log.Debugw("flush discarded", "bytes", len(chunk))
	}
	return fmt.Errorf("device still streaming after %d drain attempts", flushAttempts)
}

// dump copies the raw stream to output until cancelled. Diagnostic aid for
// protocol work; bytes are not decoded.
func (p *Processor) dump(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := p.conn.Read(p.readTimeout)
		if errors.Is(err, transport.ErrReadTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := p.out.Write(chunk); err != nil {
			return err
		}
	}
}

// nextUpdate returns the next decoded fragment, reading more bytes into the
// residual buffer as needed.
func (p *Processor) nextUpdate(ctx context.Context) (protocol.Update, error) {
	for {
		if err := ctx.Err(); err != nil {
			return protocol.Update{}, err
		}
		if frag, kind, rest, ok := protocol.Extract(p.buf); ok {
			p.buf = rest
			return protocol.Decode(kind, frag)
		}
		chunk, err := p.conn.Read(p.readTimeout)
		if err != nil {
			return protocol.Update{}, err
		}
		p.buf = append(p.buf, chunk...)
	}
}

// send paces and writes each frame of one command.
func (p *Processor) send(ctx context.Context, frames []protocol.Frame) error {
	for _, f := range frames {
		if err := p.pause(ctx, p.delay); err != nil {
			return err
		}
		p.log.Debugw("send", "frame", strings.TrimRight(string(f), "\r\n"))
		if err := p.conn.Write(f); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) sendOp(ctx context.Context, op protocol.Op) error {
	frames, err := protocol.Encode(p.model, protocol.Command{Op: op})
	if err != nil {
		return err
	}
	return p.send(ctx, frames)
}

// pause sleeps cooperatively with cancellation.
func (p *Processor) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
