package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/qguild-go/qguild/events"
	"github.com/qguild-go/qguild/qerr"
)

// State is the lifecycle position of a Conn.
type State int32

// Connection states. Guaranteed is the transient placeholder held while a
// transition is in flight; Zombie is terminal.
const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateGuaranteed
	StateZombie
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateGuaranteed:
		return "guaranteed"
	case StateZombie:
		return "zombie"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Disconnect is the receive task's verdict on a finished session: what the
// next attempt may do, and what ended this one.
type Disconnect struct {
	Resume      *Resume
	MayIdentify bool
	Cause       error
}

// Conn is one gateway websocket connection. A Conn survives across sessions;
// Connect opens a new session and the supervisor reads its end from Done.
type Conn struct {
	url      string
	identify Identify
	bus      events.Publisher
	log      zerolog.Logger
	dialer   *websocket.Dialer

	mu          sync.Mutex
	state       State
	sessionID   string
	resume      *Resume
	mayIdentify bool
	ws          *websocket.Conn
	cancel      context.CancelFunc

	writeMu sync.Mutex
	lastSeq atomic.Uint32
	tasks   sync.WaitGroup
	done    chan Disconnect
}

// NewConn builds a connection that will publish decoded dispatches on bus.
func NewConn(url string, identify Identify, bus events.Publisher, log zerolog.Logger) *Conn {
	return &Conn{
		url:         url,
		identify:    identify,
		bus:         bus,
		log:         log,
		dialer:      websocket.DefaultDialer,
		mayIdentify: true,
		done:        make(chan Disconnect, 1),
	}
}

// State returns the current lifecycle position.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the live session id, "" before the first handshake.
func (c *Conn) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// LastSeq returns the last dispatch sequence seen on this connection.
func (c *Conn) LastSeq() uint32 { return c.lastSeq.Load() }

// Done delivers the verdict each time a session ends.
func (c *Conn) Done() <-chan Disconnect { return c.done }

// Connect opens a new session: handshake, then background heartbeat and
// receive tasks. Transitions are serialised; calling Connect outside the
// Disconnected state is a StateConflict. When a Resume is pending from the
// previous session the resume procedure is used instead of Identify.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		cur := c.state
		c.mu.Unlock()
		return qerr.StateConflict("gateway connect", cur.String(), StateDisconnected.String())
	}
	resume := c.resume
	if resume == nil && !c.mayIdentify {
		c.state = StateZombie
		c.mu.Unlock()
		return qerr.New(qerr.KindCannotReconnect, "no resume and identify not allowed")
	}
	c.resume = nil
	c.state = StateConnecting
	c.mu.Unlock()

	if err := c.handshake(ctx, resume); err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *Conn) handshake(ctx context.Context, resume *Resume) error {
	ws, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return qerr.Wrap(qerr.KindIO, "dial gateway", err)
	}

	frame, err := readDownload(ws)
	if err != nil {
		ws.Close()
		return qerr.Wrap(qerr.KindMissingHello, "first gateway frame", err)
	}
	if frame.Op != OpHello {
		ws.Close()
		return qerr.New(qerr.KindMissingHello, fmt.Sprintf("first gateway frame has opcode %d", frame.Op))
	}
	interval := frame.HeartbeatInterval
	if interval <= 0 {
		ws.Close()
		return qerr.New(qerr.KindMissingHello, fmt.Sprintf("hello heartbeat interval %s not positive", interval))
	}
	c.log.Debug().Dur("heartbeat", interval).Msg("received hello")

	if resume != nil {
		if err := writeSent(ws, sentPayload{Op: OpResume, Data: resume}); err != nil {
			ws.Close()
			return qerr.Wrap(qerr.KindIO, "send resume", err)
		}
		// Replayed dispatches arrive on the normal receive path; the session
		// id to keep is the resumed one.
		c.lastSeq.Store(resume.Seq)
		c.mu.Lock()
		c.sessionID = resume.SessionID
		c.mu.Unlock()
		c.log.Info().Str("session", resume.SessionID).Uint32("seq", resume.Seq).Msg("resuming session")
	} else {
		if err := writeSent(ws, sentPayload{Op: OpIdentify, Data: c.identify}); err != nil {
			ws.Close()
			return qerr.Wrap(qerr.KindIO, "send identify", err)
		}
		ready, err := readDownload(ws)
		if err != nil {
			ws.Close()
			return qerr.Wrap(qerr.KindAuthFailed, "await ready", err)
		}
		if ready.Op != OpDispatch || events.Type(ready.Tag) != events.TypeReady {
			ws.Close()
			return qerr.New(qerr.KindAuthFailed, fmt.Sprintf("expected ready, got op %d tag %q", ready.Op, ready.Tag))
		}
		ev, err := events.Decode(ready.Tag, ready.Data)
		if err != nil {
			ws.Close()
			return qerr.Wrap(qerr.KindAuthFailed, "decode ready", err)
		}
		c.lastSeq.Store(ready.Seq)
		c.mu.Lock()
		c.sessionID = ev.Ready.SessionID
		c.mu.Unlock()
		c.log.Info().Str("session", ev.Ready.SessionID).Msg("session identified")
	}

	taskCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.ws = ws
	c.cancel = cancel
	c.state = StateConnected
	c.mu.Unlock()

	// Unblocks the receive task when the session context ends.
	go func() {
		<-taskCtx.Done()
		ws.Close()
	}()

	c.tasks.Add(2)
	go c.heartbeatLoop(taskCtx, interval)
	go c.receiveLoop(taskCtx, ws)
	return nil
}

func (c *Conn) heartbeatLoop(ctx context.Context, interval time.Duration) {
	defer c.tasks.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := c.lastSeq.Load()
			if err := c.writeJSON(sentPayload{Op: OpHeartbeat, Data: seq}); err != nil {
				// The receive task observes the socket closing and drives
				// the state change.
				c.log.Debug().Err(err).Msg("heartbeat send failed")
				return
			}
			c.log.Trace().Uint32("seq", seq).Msg("heartbeat sent")
		}
	}
}

func (c *Conn) receiveLoop(ctx context.Context, ws *websocket.Conn) {
	defer c.tasks.Done()
	c.teardown(c.receive(ctx, ws))
}

func (c *Conn) receive(ctx context.Context, ws *websocket.Conn) Disconnect {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				pol := ClosePolicy(ce.Code)
				c.log.Info().
					Int("code", ce.Code).
					Bool("resume", pol.Resume).
					Bool("may_identify", pol.MayIdentify).
					Msg("gateway closed")
				return c.verdict(pol, qerr.Wrap(qerr.KindWSClosed, fmt.Sprintf("close code %d", ce.Code), err))
			}
			if ctx.Err() != nil {
				return Disconnect{MayIdentify: true, Cause: ctx.Err()}
			}
			return Disconnect{MayIdentify: true, Cause: qerr.Wrap(qerr.KindIO, "gateway read", err)}
		}

		frame, err := decodeDownload(raw)
		if err != nil {
			return Disconnect{MayIdentify: true, Cause: err}
		}
		switch frame.Op {
		case OpDispatch:
			c.lastSeq.Store(frame.Seq)
			ev, err := events.Decode(frame.Tag, frame.Data)
			if err != nil {
				c.log.Warn().Err(err).Str("tag", frame.Tag).Msg("dropping undecodable dispatch")
				continue
			}
			if ev.IsUnknown() {
				c.log.Debug().Str("tag", frame.Tag).Msg("dropping unknown dispatch tag")
				continue
			}
			c.bus.Publish(ev)
		case OpHeartbeat, OpHeartbeatAck:
			c.log.Trace().Int("op", int(frame.Op)).Msg("gateway liveness")
		case OpReconnect:
			return c.verdict(Policy{Resume: true, MayIdentify: true}, qerr.New(qerr.KindWSClosed, "server requested reconnect"))
		case OpInvalidSession:
			return Disconnect{MayIdentify: true, Cause: qerr.New(qerr.KindAuthFailed, "session invalidated")}
		case OpHello:
			// A hello after the handshake carries nothing new.
		}
	}
}

// verdict materialises the resume ticket when the policy allows one.
func (c *Conn) verdict(pol Policy, cause error) Disconnect {
	d := Disconnect{MayIdentify: pol.MayIdentify, Cause: cause}
	if pol.Resume {
		c.mu.Lock()
		session := c.sessionID
		c.mu.Unlock()
		d.Resume = &Resume{Token: c.identify.Token, SessionID: session, Seq: c.lastSeq.Load()}
	}
	return d
}

// teardown moves the connection out of Connected, aborting the session tasks
// before the new state is visible, then delivers the verdict.
func (c *Conn) teardown(d Disconnect) {
	c.mu.Lock()
	c.state = StateGuaranteed
	cancel := c.cancel
	ws := c.ws
	c.cancel = nil
	c.ws = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ws != nil {
		ws.Close()
	}

	c.mu.Lock()
	c.resume = d.Resume
	c.mayIdentify = d.MayIdentify
	if d.Resume == nil && !d.MayIdentify {
		c.state = StateZombie
	} else {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	c.done <- d
}

// Close aborts the live session, if any. The receive task observes the
// socket closing and completes the transition.
func (c *Conn) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Shutdown aborts the session and waits for its tasks to stop.
func (c *Conn) Shutdown() {
	c.Close()
	c.tasks.Wait()
}

func (c *Conn) writeJSON(p sentPayload) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return qerr.New(qerr.KindWSClosed, "gateway write")
	}
	return writeSentLocked(&c.writeMu, ws, p)
}

func writeSent(ws *websocket.Conn, p sentPayload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return qerr.Wrap(qerr.KindSerialization, "encode gateway frame", err)
	}
	return ws.WriteMessage(websocket.TextMessage, raw)
}

func writeSentLocked(mu *sync.Mutex, ws *websocket.Conn, p sentPayload) error {
	mu.Lock()
	defer mu.Unlock()
	return writeSent(ws, p)
}

func readDownload(ws *websocket.Conn) (download, error) {
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return download{}, err
	}
	return decodeDownload(raw)
}
