// Package dashboard wires the dashboard's state containers to the backend.
// It owns one handler per action button and is the only place that mutates
// the operation log, the node registry and the view selector.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/salahayoub/distdash/pkg/backend"
	"github.com/salahayoub/distdash/pkg/clock"
	"github.com/salahayoub/distdash/pkg/logging"
	"github.com/salahayoub/distdash/pkg/nodes"
	"github.com/salahayoub/distdash/pkg/oplog"
	"github.com/salahayoub/distdash/pkg/types"
	"github.com/salahayoub/distdash/pkg/view"
)

// ErrUnknownAction is returned by Trigger for an id no action matches.
var ErrUnknownAction = errors.New("unknown action")

// Action ids for the fragmentation buttons.
const (
	ActionHorizontal = "fragmentacion-horizontal"
	ActionVertical   = "fragmentacion-vertical"
)

// Variant groups actions for display.
type Variant string

const (
	VariantFragmentation Variant = "fragmentation"
	VariantReplication   Variant = "replication"
)

// Action is one button on the dashboard.
type Action struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// State is a read-only snapshot of every container.
type State struct {
	Nodes      []nodes.Node      `json:"nodes"`
	Operations []oplog.Operation `json:"operations"`
	LogVisible bool              `json:"log_visible"`
	View       view.State        `json:"view"`
}

// Controller runs dashboard actions.
type Controller struct {
	client   backend.Client
	log      *oplog.Log
	registry *nodes.Registry
	selector *view.Selector
	logger   *logging.Logger

	routes       []Route
	simulateSync bool

	mu               sync.Mutex
	horizontalLogged bool
	verticalLogged   bool

	subMu   sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

type options struct {
	sched        clock.Scheduler
	journal      oplog.Journal
	logger       *logging.Logger
	routes       []Route
	simulateSync bool
}

// Option configures a Controller.
type Option func(*options)

// WithScheduler drives every timer through sched.
func WithScheduler(sched clock.Scheduler) Option {
	return func(o *options) { o.sched = sched }
}

// WithJournal mirrors the operation log into j.
func WithJournal(j oplog.Journal) Option {
	return func(o *options) { o.journal = j }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRoutes replaces the built-in replication routes.
func WithRoutes(routes []Route) Option {
	return func(o *options) { o.routes = routes }
}

// WithSimulateSync toggles the node syncing simulation on replication.
func WithSimulateSync(enabled bool) Option {
	return func(o *options) { o.simulateSync = enabled }
}

// New creates a controller talking to client.
func New(client backend.Client, opts ...Option) *Controller {
	o := options{
		sched:        clock.Real{},
		routes:       DefaultRoutes(),
		simulateSync: true,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = logging.Default()
	}

	logOpts := []oplog.Option{oplog.WithLogger(logger.Named("oplog"))}
	if o.journal != nil {
		logOpts = append(logOpts, oplog.WithJournal(o.journal))
	}

	c := &Controller{
		client:       client,
		log:          oplog.New(o.sched, logOpts...),
		registry:     nodes.NewRegistry(o.sched),
		selector:     view.NewSelector(),
		logger:       logger.Named("dashboard"),
		routes:       o.routes,
		simulateSync: o.simulateSync,
		subs:         make(map[int]chan struct{}),
	}
	c.log.OnChange(c.broadcast)
	c.registry.OnChange(c.broadcast)
	c.selector.OnChange(c.broadcast)
	return c
}

// Log returns the operation log.
func (c *Controller) Log() *oplog.Log { return c.log }

// Nodes returns the node registry.
func (c *Controller) Nodes() *nodes.Registry { return c.registry }

// View returns the view selector.
func (c *Controller) View() *view.Selector { return c.selector }

// State returns a snapshot of every container.
func (c *Controller) State() State {
	return State{
		Nodes:      c.registry.List(),
		Operations: c.log.List(),
		LogVisible: c.log.Visible(),
		View:       c.selector.Snapshot(),
	}
}

// Subscribe returns a channel that receives a value after state changes.
// Notifications coalesce: a slow reader sees at least one pending signal, not
// one per change. cancel releases the subscription.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	c.subMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Controller) broadcast() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Actions lists every button in display order.
func (c *Controller) Actions() []Action {
	out := []Action{
		{ID: ActionHorizontal, Title: "Clientes (Fragmentación Horizontal)", Description: "Fragmentación de la tabla clientes por ciudad", Variant: VariantFragmentation},
		{ID: ActionVertical, Title: "Empleados (Fragmentación Vertical)", Description: "Fragmentación de la tabla empleados por atributos", Variant: VariantFragmentation},
	}
	for _, r := range c.routes {
		out = append(out, Action{ID: r.ID, Title: r.Title, Description: r.Description, Variant: VariantReplication})
	}
	return out
}

// Route returns the replication route with the given id.
func (c *Controller) Route(id string) (Route, bool) {
	for _, r := range c.routes {
		if r.ID == id {
			return r, true
		}
	}
	return Route{}, false
}

// Trigger runs the action with the given id.
func (c *Controller) Trigger(ctx context.Context, id string) error {
	switch id {
	case ActionHorizontal:
		return c.FragmentHorizontal(ctx)
	case ActionVertical:
		return c.FragmentVertical(ctx)
	}
	if r, ok := c.Route(id); ok {
		return c.Replicate(ctx, r)
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, id)
}

// firstCall reports whether the guard was unset, setting it in one step.
func (c *Controller) firstCall(flag *bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if *flag {
		return false
	}
	*flag = true
	return true
}

// FragmentHorizontal logs the client partitioning scheme once per session and
// shows the unified client view.
func (c *Controller) FragmentHorizontal(ctx context.Context) error {
	if c.firstCall(&c.horizontalLogged) {
		c.log.Record(CategoryHorizontal,
			"Fragmentación de la tabla clientes por ciudad",
			"Clientes Quito → Nodo Quito\nClientes Guayaquil → Nodo Guayaquil\nClientes Cuenca → Nodo Cuenca")
	}

	rows, err := c.client.Clients(ctx)
	if err != nil {
		c.logger.Errorf("error al obtener clientes: %v", err)
		c.selector.Fail(view.KindClients, err)
		return err
	}
	c.selector.SelectClients(rows)
	return nil
}

// FragmentVertical logs the employee attribute split once per session and
// shows the unified employee view.
func (c *Controller) FragmentVertical(ctx context.Context) error {
	if c.firstCall(&c.verticalLogged) {
		c.log.Record(CategoryVertical,
			"Fragmentación de la tabla empleados por atributos",
			"Guayaquil: id, nombre, apellido, cargo \nCuenca: ciudad, salario, fecha contratación, contacto emergencia")
	}

	rows, err := c.client.Employees(ctx)
	if err != nil {
		c.logger.Errorf("error al obtener empleados: %v", err)
		c.selector.Fail(view.KindEmployees, err)
		return err
	}
	c.selector.SelectEmployees(rows)
	return nil
}

// Replicate runs one replication route. On success both snapshots are shown
// and the operation is logged; on any failure the view is left as it was and
// nothing is logged.
func (c *Controller) Replicate(ctx context.Context, r Route) error {
	if c.simulateSync || r.SimulateOnly {
		if err := c.registry.BeginSync(r.Origin, r.Destination); err != nil {
			c.logger.Warnf("sync simulation for %s: %v", r.ID, err)
		}
	}

	if r.SimulateOnly {
		return c.recordSimulated(r)
	}

	err := c.replicate(ctx, r)
	if err != nil {
		c.logger.Errorf("error en replicación %s: %v", r.ID, err)
		c.selector.Fail(r.Kind, err)
		return fmt.Errorf("%s: %w", r.ID, err)
	}
	return nil
}

func (c *Controller) replicate(ctx context.Context, r Route) error {
	method, path, query := r.Request()
	raw, err := c.client.Do(ctx, method, path, query)
	if err != nil {
		return err
	}

	beforeKey, afterKey := r.Keys()
	beforeTitle, afterTitle := r.expand(r.BeforeTitle), r.expand(r.AfterTitle)

	switch r.Kind {
	case view.KindPromotions:
		var before, after []types.Promotion
		if err := Extract(raw, beforeKey, &before); err != nil {
			return err
		}
		if err := Extract(raw, afterKey, &after); err != nil {
			return err
		}
		c.selector.SelectPromotions(before, after, beforeTitle, afterTitle)
		category, description := Classify(r.Origin, r.Destination)
		c.log.Record(category, description, countDetail(len(before), len(after)))

	case view.KindMovies:
		var before, after []types.Movie
		if err := Extract(raw, beforeKey, &before); err != nil {
			return err
		}
		if err := Extract(raw, afterKey, &after); err != nil {
			return err
		}
		c.selector.SelectMovies(before, after, beforeTitle, afterTitle)
		c.log.Record(CategoryUnidirectional,
			fmt.Sprintf("Películas %s → %s", r.Origin, r.Destination),
			countDetail(len(before), len(after)))

	default:
		return fmt.Errorf("route %s has no renderable view kind %q", r.ID, r.Kind)
	}
	return nil
}

func (c *Controller) recordSimulated(r Route) error {
	src, err := c.registry.Get(r.Origin)
	if err != nil {
		return err
	}
	dst, err := c.registry.Get(r.Destination)
	if err != nil {
		return err
	}
	c.log.Record(
		fmt.Sprintf("Réplica %s a %s", src.Name, dst.Name),
		fmt.Sprintf("Replicando datos desde %s (%s) hacia %s (%s)", src.Name, src.DBMS, dst.Name, dst.DBMS),
		fmt.Sprintf("Sincronizando tablas: PELICULAS, CLIENTES, ALQUILERES\nRegistros replicados: %d", src.Records),
	)
	return nil
}

func countDetail(before, after int) string {
	return fmt.Sprintf("Registros antes: %d\nRegistros después: %d", before, after)
}

// Close cancels every pending timer. Later timer updates are discarded.
func (c *Controller) Close() {
	c.log.Close()
	c.registry.Close()
}
