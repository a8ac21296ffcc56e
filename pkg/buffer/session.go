package buffer

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// Session owns everything one optimization run needs: the validated
// configuration, the cell catalog, the per-node state table and the
// current delay trace. Sessions are created with [NewSession] and must be
// released with [Session.Close] on every exit path.
//
// A Session is single-threaded; it mutates the network it was created for.
type Session struct {
	net     *network.Network
	model   *timing.Model
	cfg     Config
	catalog *Catalog
	states  *StateTable
	trace   *timing.Trace
	scope   map[network.NodeID]bool
	stats   Stats
	logger  *log.Logger
	sweep   int

	// inserted names every node created so far, in creation order.
	inserted []string

	// latest pins the required time of unconstrained outputs while frozen.
	latest float64
	frozen bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger routes session logging to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession validates cfg, builds the catalog and traces net. Every
// configuration problem is reported here, before the network is touched.
func NewSession(net *network.Network, model *timing.Model, cfg Config, opts ...Option) (*Session, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := net.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidNetwork, err, "network %s", net.Name())
	}
	if model == nil {
		model = timing.NewModel(nil, cfg.WireLoad)
	}
	catalog, err := BuildCatalog(net, model, cfg.UseMappedModel)
	if err != nil {
		return nil, err
	}

	s := &Session{
		net:     net,
		model:   model,
		cfg:     cfg,
		catalog: catalog,
		logger:  log.New(io.Discard),
		stats:   newStats(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(cfg.Nodes) > 0 {
		s.scope = make(map[network.NodeID]bool, len(cfg.Nodes))
		for _, name := range cfg.Nodes {
			id, ok := net.Lookup(name)
			if !ok {
				return nil, errors.New(errors.ErrCodeNodeNotFound, "node %q not in network %s", name, net.Name())
			}
			s.scope[id] = true
		}
	}

	if err := s.retrace(); err != nil {
		return nil, err
	}
	s.states = NewStateTable(net)
	s.stats.Constrained = s.trace.Constrained()
	s.stats.AreaBefore = s.Area()
	s.stats.MetricBefore = s.metric()
	return s, nil
}

// Close releases the catalog and detaches the state table. It is safe to
// call more than once.
func (s *Session) Close() {
	if s.states != nil {
		s.states.Detach()
		s.states = nil
	}
	s.catalog = nil
	s.trace = nil
}

// Network returns the network being optimized.
func (s *Session) Network() *network.Network { return s.net }

// Model returns the delay model.
func (s *Session) Model() *timing.Model { return s.model }

// Config returns the validated configuration.
func (s *Session) Config() Config { return s.cfg }

// Catalog returns the cell catalog.
func (s *Session) Catalog() *Catalog { return s.catalog }

// States returns the per-node state table.
func (s *Session) States() *StateTable { return s.states }

// Trace returns the current delay trace.
func (s *Session) Trace() *timing.Trace { return s.trace }

// Stats returns a copy of the statistics gathered so far.
func (s *Session) Stats() Stats { return s.stats.clone() }

func (s *Session) retrace() error {
	tr, err := s.traceOf(s.net)
	if err != nil {
		return err
	}
	s.trace = tr
	return nil
}

// traceOf traces net, which is the session network or a scratch copy of it,
// with the session's reference for unconstrained outputs.
func (s *Session) traceOf(net *network.Network) (*timing.Trace, error) {
	var opts []timing.Option
	if s.frozen {
		opts = append(opts, timing.WithLatest(s.latest))
	}
	tr, err := timing.Run(net, s.model, opts...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "delay trace of %s", net.Name())
	}
	return tr, nil
}

// freeze retraces and pins the reference of unconstrained outputs at the
// current latest arrival until unfreeze is called.
func (s *Session) freeze() error {
	s.frozen = false
	if err := s.retrace(); err != nil {
		return err
	}
	s.latest = s.trace.MaxArrival()
	s.frozen = !s.trace.Constrained()
	return nil
}

// unfreeze releases the pinned reference and retraces.
func (s *Session) unfreeze() error {
	s.frozen = false
	return s.retrace()
}

// ensureTrace retraces when the network changed since the last trace.
func (s *Session) ensureTrace() error {
	if s.trace == nil || s.trace.Stale() {
		return s.retrace()
	}
	return nil
}

// Area returns the total area of every mapped node.
func (s *Session) Area() float64 {
	total := 0.0
	for _, nd := range s.net.Internal() {
		total += s.model.Area(nd)
	}
	return total
}

// metric is the performance figure the driver maximizes: the worst output
// slack when outputs are constrained, otherwise the negated latest arrival.
func (s *Session) metric() float64 {
	if s.trace.Constrained() {
		return s.trace.MinOutputSlack()
	}
	return -s.trace.MaxArrival()
}

func (s *Session) inScope(id network.NodeID) bool {
	return s.scope == nil || s.scope[id]
}

func (s *Session) nodeName(id network.NodeID) string {
	if nd, ok := s.net.Node(id); ok {
		return nd.Name
	}
	return "?"
}

func (s *Session) debug(level int, msg string, kv ...any) {
	if s.cfg.DebugLevel >= level {
		s.logger.Debug(msg, kv...)
	}
}
