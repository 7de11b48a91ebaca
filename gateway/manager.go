package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/qguild-go/qguild/api"
	"github.com/qguild-go/qguild/events"
	"github.com/qguild-go/qguild/qerr"
)

// identifySpacing is the gap between identify waves when the platform
// advertises a max_concurrency budget.
const identifySpacing = 5 * time.Second

// Shards selects which shard indexes of a total this process runs.
type Shards struct {
	Total  uint32
	Chosen []uint32
}

// NewShards validates and normalises a shard selection: duplicates are
// dropped and every chosen index must be below the total.
func NewShards(total uint32, chosen ...uint32) (Shards, error) {
	if total == 0 {
		return Shards{}, qerr.New(qerr.KindUnexpected, "shard total must be positive")
	}
	seen := make(map[uint32]struct{}, len(chosen))
	out := make([]uint32, 0, len(chosen))
	for _, idx := range chosen {
		if idx >= total {
			return Shards{}, qerr.New(qerr.KindUnexpected, fmt.Sprintf("shard index %d not below total %d", idx, total))
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Shards{Total: total, Chosen: out}, nil
}

// ManagerConfig describes a Manager.
type ManagerConfig struct {
	Client  *api.Client
	Intents Intents
	// Shards picks explicit shard coordinates. Nil with AutoShard runs the
	// platform-recommended layout; nil without runs a standalone shard [0,1].
	Shards    *Shards
	AutoShard bool
	// Properties is attached verbatim to every Identify.
	Properties    map[string]string
	RetryMax      int
	RetryInterval time.Duration
	Logger        zerolog.Logger
}

// Manager resolves the gateway URL and shard layout, then runs one
// supervisor per shard, all publishing to a shared broadcaster.
type Manager struct {
	cfg ManagerConfig
	bus events.Publisher
	log zerolog.Logger

	supervisors []*Supervisor
	group       *errgroup.Group
	unhealthy   atomic.Bool
	started     atomic.Bool
}

// NewManager builds a manager publishing to bus.
func NewManager(cfg ManagerConfig, bus events.Publisher) *Manager {
	return &Manager{cfg: cfg, bus: bus, log: cfg.Logger}
}

// Start resolves the layout and spawns the shard supervisors. It returns once
// every supervisor is launched; Wait blocks on their lifetime.
func (m *Manager) Start(ctx context.Context) error {
	if m.started.Swap(true) {
		return qerr.StateConflict("manager start", "started", "stopped")
	}

	url, shards, maxConcurrency, err := m.resolveLayout(ctx)
	if err != nil {
		return err
	}
	token, err := m.cfg.Client.Authorization(ctx)
	if err != nil {
		return err
	}

	m.log.Info().Str("url", url).Uint32("total", shards.Total).Ints32("chosen", toInts32(shards.Chosen)).Msg("starting shards")

	// Supervisors run directly on the caller's context: a fatal exit on one
	// shard marks the bot unhealthy but never cancels its siblings.
	group := &errgroup.Group{}
	m.group = group
	for i, idx := range shards.Chosen {
		identify := Identify{
			Token:      token,
			Intents:    m.cfg.Intents,
			Shard:      &[2]uint32{idx, shards.Total},
			Properties: m.cfg.Properties,
		}
		log := m.log.With().Uint32("shard", idx).Logger()
		conn := NewConn(url, identify, m.bus, log)
		sup := NewSupervisor(conn, m.cfg.RetryMax, m.cfg.RetryInterval, log)
		m.supervisors = append(m.supervisors, sup)

		delay := identifyDelay(i, maxConcurrency)
		group.Go(func() error {
			if delay > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(delay):
				}
			}
			if err := sup.Run(ctx); err != nil {
				m.unhealthy.Store(true)
				return err
			}
			return nil
		})
	}
	return nil
}

// resolveLayout fetches the gateway URL and decides the shard coordinates.
func (m *Manager) resolveLayout(ctx context.Context) (string, Shards, uint64, error) {
	if m.cfg.AutoShard {
		resp, err := m.cfg.Client.GetGatewayBot(ctx)
		if err != nil {
			return "", Shards{}, 0, err
		}
		shards := m.cfg.Shards
		if shards == nil {
			total := resp.Shards
			if total == 0 {
				total = 1
			}
			chosen := make([]uint32, total)
			for i := range chosen {
				chosen[i] = uint32(i)
			}
			all, err := NewShards(total, chosen...)
			if err != nil {
				return "", Shards{}, 0, err
			}
			shards = &all
		}
		return resp.URL, *shards, resp.SessionStartLimit.MaxConcurrency, nil
	}

	resp, err := m.cfg.Client.GetGateway(ctx)
	if err != nil {
		return "", Shards{}, 0, err
	}
	shards := m.cfg.Shards
	if shards == nil {
		standalone, err := NewShards(1, 0)
		if err != nil {
			return "", Shards{}, 0, err
		}
		shards = &standalone
	}
	return resp.URL, *shards, 0, nil
}

// Wait blocks until every supervisor returns and yields the first fatal
// shard error, if any.
func (m *Manager) Wait() error {
	if m.group == nil {
		return nil
	}
	return m.group.Wait()
}

// Healthy reports whether no shard has exited fatally.
func (m *Manager) Healthy() bool { return !m.unhealthy.Load() }

// Supervisors exposes the running shard supervisors.
func (m *Manager) Supervisors() []*Supervisor { return m.supervisors }

// identifyDelay spaces identify attempts into waves of maxConcurrency. A zero
// budget means the platform gave no advice and no spacing applies.
func identifyDelay(i int, maxConcurrency uint64) time.Duration {
	if maxConcurrency == 0 {
		return 0
	}
	return time.Duration(uint64(i)/maxConcurrency) * identifySpacing
}

func toInts32(v []uint32) []int32 {
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}
