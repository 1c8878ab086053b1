// Package service drives the supply: it maps CLI tokens to protocol
// operations, paces and sends frames, runs the optional read-back
// verification loop, and streams trace captures.
package service

import (
	"context"
	"time"

	"fnirsi_ps"
	"fnirsi_ps/internal/logger"
	"fnirsi_ps/internal/protocol"
)

// Conn is the transport the processor talks through. *transport.Session
// satisfies it; tests substitute a scripted fake.
type Conn interface {
	Write(frame []byte) error
	Read(timeout time.Duration) ([]byte, error)
}

// Reporter consumes decoded status records. Implementations must be pure
// output: no device interaction.
type Reporter interface {
	Report(fnirsi_ps.StatusRecord) error
}

// Commander executes an ordered token sequence, fail-fast.
type Commander interface {
	Run(ctx context.Context, tokens []string) error
}

// Tracer streams status samples: exactly n for n >= 0, unbounded for n = -1.
type Tracer interface {
	Trace(ctx context.Context, n int, fn func(fnirsi_ps.StatusRecord) error) error
}

// Service aggregates the command-processing surfaces behind one value.
type Service struct {
	Commander
	Tracer
}

// NewService wires the transport, protocol model, and reporter into a
// command processor.
func NewService(conn Conn, model *protocol.Model, rep Reporter, log *logger.Logger, opts Options) *Service {
	p := NewProcessor(conn, model, rep, log, opts)
	return &Service{
		Commander: p,
		Tracer:    p,
	}
}
