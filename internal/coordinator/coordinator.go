// Package coordinator is the entry point for every group operation. It
// serializes mutations per group, runs them through the ledger inside the
// store's read-modify-write transaction, and fans out side effects (events,
// cache eviction, metrics, spans) once a change is committed.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/groupcart/internal/calculator"
	"github.com/mmynk/groupcart/internal/events"
	"github.com/mmynk/groupcart/internal/ledger"
	"github.com/mmynk/groupcart/internal/metrics"
	"github.com/mmynk/groupcart/internal/models"
	"github.com/mmynk/groupcart/internal/storage"
	"github.com/mmynk/groupcart/internal/telemetry"
)

// SnapshotCache holds the public-group list between mutations.
type SnapshotCache interface {
	// Get returns the cached list and the generation it was read under.
	Get(ctx context.Context) ([]*models.Group, int64, bool, error)
	// Put stores groups for gen; a later Invalidate makes it unreachable.
	Put(ctx context.Context, gen int64, groups []*models.Group) error
	Invalidate(ctx context.Context) error
}

// Coordinator applies group operations.
type Coordinator struct {
	store     storage.Store
	locks     *keyedMutex
	publisher events.Publisher
	snapshots SnapshotCache
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	producer  string
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithPublisher sets where domain events go. Defaults to events.Nop.
func WithPublisher(p events.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithSnapshotCache enables caching of the public-group list.
func WithSnapshotCache(s SnapshotCache) Option {
	return func(c *Coordinator) { c.snapshots = s }
}

// WithMetrics sets the collectors to report to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// WithProducerName sets the producer field of published events.
func WithProducerName(name string) Option {
	return func(c *Coordinator) { c.producer = name }
}

// New returns a coordinator over store.
func New(store storage.Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		locks:     newKeyedMutex(),
		publisher: events.Nop{},
		tracer:    otel.Tracer(telemetry.TracerName),
		producer:  "groupcart",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c
}

// storeCatalog resolves products through the catalog store for ledger aggregates.
type storeCatalog struct {
	ctx   context.Context
	store storage.CatalogStore
}

func (s storeCatalog) Product(id string) (*models.Product, error) {
	return s.store.GetProduct(s.ctx, id)
}

// catalogFor loads the products for ids in one query.
func (c *Coordinator) catalogFor(ctx context.Context, ids []string) (calculator.Catalog, error) {
	products, err := c.store.GetProducts(ctx, ids)
	if err != nil {
		return nil, models.DependencyError("coordinator.catalog", err)
	}
	catalog := make(calculator.Catalog, len(products))
	for id, p := range products {
		catalog[id] = p
	}
	return catalog, nil
}

// begin starts a span and returns a func that records the outcome of op.
func (c *Coordinator) begin(ctx context.Context, op, groupID string) (context.Context, func(error)) {
	ctx, span := c.tracer.Start(ctx, "coordinator."+op,
		trace.WithAttributes(attribute.String("group.id", groupID)))
	start := time.Now()
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(models.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.String("outcome", outcome))
		span.End()
		c.metrics.Operations.WithLabelValues(op, outcome).Inc()
		c.metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

// classify turns errors from outside the domain taxonomy into dependency failures.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if models.KindOf(err) == models.KindUnknown {
		return models.DependencyError("coordinator."+op, err)
	}
	return err
}

// mutate runs fn against groupID under the group's lock and the store's
// transaction. Events collected by fn are published only after commit.
func (c *Coordinator) mutate(ctx context.Context, op, groupID string, fn func(l *ledger.Ledger, emit func(string, any)) error) (group *models.Group, err error) {
	ctx, end := c.begin(ctx, op, groupID)
	defer func() { end(err) }()

	unlock := c.locks.Lock(groupID)
	defer unlock()

	type pending struct {
		eventType string
		payload   any
	}
	var out []pending
	group, err = c.store.MutateGroup(ctx, groupID, func(g *models.Group) error {
		out = out[:0]
		emit := func(eventType string, payload any) {
			out = append(out, pending{eventType, payload})
		}
		return fn(ledger.New(g, storeCatalog{ctx: ctx, store: c.store}), emit)
	})
	if err != nil {
		return nil, classify(op, err)
	}

	c.invalidate(ctx)
	for _, e := range out {
		c.publish(ctx, e.eventType, groupID, e.payload)
	}
	return group, nil
}

func (c *Coordinator) publish(ctx context.Context, eventType, groupID string, payload any) {
	env, err := events.New(c.producer, eventType, groupID, payload)
	if err == nil {
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			env.TraceID = sc.TraceID().String()
		}
		err = c.publisher.Publish(ctx, env)
	}
	if err != nil {
		slog.Warn("Failed to publish event", "event_type", eventType, "group_id", groupID, "error", err)
	}
}

func (c *Coordinator) invalidate(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	if err := c.snapshots.Invalidate(ctx); err != nil {
		slog.Warn("Failed to invalidate group snapshot", "error", err)
	}
}

// publicGroups returns the public-group snapshot, from cache when possible.
func (c *Coordinator) publicGroups(ctx context.Context) ([]*models.Group, error) {
	gen, cacheable := int64(0), false
	if c.snapshots != nil {
		groups, g, ok, err := c.snapshots.Get(ctx)
		switch {
		case err != nil:
			c.metrics.SnapshotLookups.WithLabelValues("error").Inc()
			slog.Warn("Snapshot cache read failed, falling back to store", "error", err)
		case ok:
			c.metrics.SnapshotLookups.WithLabelValues("hit").Inc()
			return groups, nil
		default:
			c.metrics.SnapshotLookups.WithLabelValues("miss").Inc()
			gen, cacheable = g, true
		}
	}

	groups, err := c.store.ListPublicGroups(ctx)
	if err != nil {
		return nil, models.DependencyError("coordinator.publicGroups", err)
	}
	if cacheable {
		if err := c.snapshots.Put(ctx, gen, groups); err != nil {
			slog.Warn("Failed to cache group snapshot", "error", err)
		}
	}
	return groups, nil
}
