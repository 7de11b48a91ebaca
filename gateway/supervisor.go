package gateway

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/qguild-go/qguild/qerr"
)

// Default retry settings for a supervisor.
const (
	DefaultRetryMax      = 5
	DefaultRetryInterval = 5 * time.Second
)

// Supervisor wraps one connection with a bounded reconnect loop and a clean
// shutdown path.
type Supervisor struct {
	conn          *Conn
	retryMax      int
	retryInterval time.Duration
	log           zerolog.Logger
}

// NewSupervisor builds a supervisor. Zero retry settings take the defaults.
func NewSupervisor(conn *Conn, retryMax int, retryInterval time.Duration, log zerolog.Logger) *Supervisor {
	if retryMax <= 0 {
		retryMax = DefaultRetryMax
	}
	if retryInterval <= 0 {
		retryInterval = DefaultRetryInterval
	}
	return &Supervisor{conn: conn, retryMax: retryMax, retryInterval: retryInterval, log: log}
}

// Conn exposes the supervised connection.
func (s *Supervisor) Conn() *Conn { return s.conn }

// Run connects and keeps the connection alive until ctx is cancelled or the
// connection ends in a state no retry can leave. A nil return means clean
// shutdown.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.reconnect(ctx); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			s.conn.Shutdown()
			return nil
		case d := <-s.conn.Done():
			if ctx.Err() != nil {
				s.conn.Shutdown()
				return nil
			}
			if d.Resume == nil && !d.MayIdentify {
				s.log.Error().Err(d.Cause).Msg("shard closed fatally")
				return qerr.Wrap(qerr.KindCannotReconnect, "shard closed fatally", d.Cause)
			}
			s.log.Warn().Err(d.Cause).Bool("resume", d.Resume != nil).Msg("session ended, reconnecting")
			if err := s.reconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// reconnect attempts Connect up to retryMax times, sleeping retryInterval
// between failures. Cancellation returns nil.
func (s *Supervisor) reconnect(ctx context.Context) error {
	var last error
	for attempt := 1; attempt <= s.retryMax; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		err := s.conn.Connect(ctx)
		if err == nil {
			return nil
		}
		last = err
		if qerr.IsKind(err, qerr.KindStateConflict) || qerr.IsKind(err, qerr.KindCannotReconnect) {
			return err
		}
		s.log.Warn().Err(err).Int("attempt", attempt).Int("retry_max", s.retryMax).Msg("gateway connect failed")
		if attempt < s.retryMax {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.retryInterval):
			}
		}
	}
	return qerr.Wrap(qerr.KindCannotReconnect, "connect retries exhausted", last)
}
