// Package client keeps the state of each running client instance: its
// Session and the local state of its pages.
package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/sade-booster/identity"
	"github.com/jrsteele09/sade-booster/session"
	"github.com/jrsteele09/sade-booster/view"
	"github.com/rs/zerolog/log"
)

const defaultProbeTimeout = 10 * time.Second

// Instance is one client of the portal, identified by its cookie.
type Instance struct {
	ID        string
	Session   *session.Manager
	Dashboard *view.Dashboard
	Signup    *view.Signup

	probed      chan struct{} // closed once the startup probe returns
	unsubscribe func()
}

// WaitReady blocks until the startup probe has returned or ctx is done.
func (i *Instance) WaitReady(ctx context.Context) error {
	select {
	case <-i.probed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type entry struct {
	instance *Instance
	lastSeen time.Time
}

// Registry creates, finds and discards client instances.
type Registry struct {
	connector    identity.Connector
	nowTime      func() time.Time
	probeTimeout time.Duration

	mu        sync.Mutex
	instances map[string]*entry
	probes    sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

// WithProbeTimeout bounds the startup probe of new instances
func WithProbeTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.probeTimeout = d
	}
}

func NewRegistry(connector identity.Connector, opts ...Option) *Registry {
	r := &Registry{
		connector:    connector,
		nowTime:      time.Now,
		probeTimeout: defaultProbeTimeout,
		instances:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Open returns the instance for id, creating it when unknown. A new instance
// starts probing for an existing session in the background and reports
// created as true. An empty id always creates an instance with a fresh id.
func (r *Registry) Open(ctx context.Context, id string) (inst *Instance, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.instances[id]; ok && id != "" {
		e.lastSeen = r.nowTime()
		return e.instance, false
	}
	if id == "" {
		id = uuid.NewString()
	}

	provider := r.connector.Connect(id)
	inst = &Instance{
		ID:        id,
		Session:   session.NewManager(provider),
		Dashboard: view.NewDashboard(),
		Signup:    view.NewSignup(provider),
		probed:    make(chan struct{}),
	}
	inst.unsubscribe = inst.Session.Subscribe(inst.Dashboard.Observe)
	r.instances[id] = &entry{instance: inst, lastSeen: r.nowTime()}

	// The probe outlives the request that opened the instance
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.probeTimeout)
	r.probes.Add(1)
	go func() {
		defer r.probes.Done()
		defer cancel()
		defer close(inst.probed)
		inst.Session.Probe(probeCtx)
	}()

	log.Debug().Str("client_id", id).Msg("Client instance opened")
	return inst, true
}

// Get returns the instance for id and marks it as used.
func (r *Registry) Get(id string) (*Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.instances[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.nowTime()
	return e.instance, true
}

// Discard tears the instance down. Operations still in flight on its Session
// finish without applying their results.
func (r *Registry) Discard(id string) {
	r.mu.Lock()
	e, ok := r.instances[id]
	delete(r.instances, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.instance.unsubscribe()
	e.instance.Session.Close()
	log.Debug().Str("client_id", id).Msg("Client instance discarded")
}

// Sweep discards instances unused for longer than maxIdle and returns how
// many were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := r.nowTime()
	var stale []string
	r.mu.Lock()
	for id, e := range r.instances {
		if now.Sub(e.lastSeen) > maxIdle {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	for _, id := range stale {
		r.Discard(id)
	}
	return len(stale)
}

// StartJanitor sweeps idle instances every interval until ctx is done.
func (r *Registry) StartJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := r.Sweep(maxIdle); n > 0 {
					log.Info().Int("count", n).Msg("Discarded idle client instances")
				}
			}
		}
	}()
}

// Len returns the number of live instances.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.instances)
}

// Close discards every instance and waits for startup probes to return.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.instances))
	for id := range r.instances {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Discard(id)
	}
	r.probes.Wait()
}
