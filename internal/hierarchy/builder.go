package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/johnwards/devicetree/internal/domain"
	"github.com/johnwards/devicetree/internal/metrics"
)

const tracerName = "github.com/johnwards/devicetree/internal/hierarchy"

// DefaultSupportedTypes is the default allow-list: assets are listed before
// devices among siblings.
var DefaultSupportedTypes = []domain.EntityType{domain.EntityTypeAsset, domain.EntityTypeDevice}

// Config tunes a Builder.
type Config struct {
	// SupportedTypes is the ordered allow-list of entity types that take
	// part in the hierarchy. Children of any other type are dropped, and
	// siblings are grouped in this order.
	SupportedTypes []domain.EntityType

	// LabelKey names the SERVER_SCOPE attribute preferred over the entity
	// name as a node label. Defaults to "name".
	LabelKey string

	// FetchConcurrency bounds parallel attribute and relation fetches per
	// batch. Zero means unbounded.
	FetchConcurrency int
}

func (c Config) withDefaults() Config {
	if len(c.SupportedTypes) == 0 {
		c.SupportedTypes = DefaultSupportedTypes
	}
	// Repeated types would list their children twice.
	types := make([]domain.EntityType, 0, len(c.SupportedTypes))
	for _, t := range c.SupportedTypes {
		if !slices.Contains(types, t) {
			types = append(types, t)
		}
	}
	c.SupportedTypes = types
	if c.LabelKey == "" {
		c.LabelKey = "name"
	}
	return c
}

// Option configures a Builder.
type Option func(*Builder)

// WithMetrics records fetch and cache activity on m.
func WithMetrics(m *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithCache makes the Builder share an existing cache.
func WithCache(c *Cache) Option {
	return func(b *Builder) { b.cache = c }
}

// WithLogger sets the logger used for warnings. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// Builder turns entity references into tree nodes, one level at a time.
type Builder struct {
	src     Source
	cfg     Config
	cache   *Cache
	metrics *metrics.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewBuilder returns a Builder reading from src.
func NewBuilder(src Source, cfg Config, opts ...Option) *Builder {
	b := &Builder{
		src:    src,
		cfg:    cfg.withDefaults(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.cache == nil {
		b.cache = NewCache()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Cache returns the builder's cache.
func (b *Builder) Cache() *Cache {
	return b.cache
}

// SupportedTypes returns the configured allow-list.
func (b *Builder) SupportedTypes() []domain.EntityType {
	return slices.Clone(b.cfg.SupportedTypes)
}

// Roots builds level-0 nodes for refs. References are fetched with one
// batched call per entity type, and the result follows the input order.
// Ids the source does not return, ids of unsupported types and repeated ids
// are left out.
func (b *Builder) Roots(ctx context.Context, refs []domain.EntityRef) (_ []domain.TreeNode, err error) {
	ctx, span := b.tracer.Start(ctx, "hierarchy.Roots",
		trace.WithAttributes(attribute.Int("hierarchy.refs", len(refs))))
	defer func() { endSpan(span, err) }()

	byType := b.partition(refs)
	built, err := b.resolveAll(ctx, byType, 0, "")
	if err != nil {
		return nil, err
	}

	index := make(map[string]domain.TreeNode)
	for _, nodes := range built {
		for _, n := range nodes {
			index[n.ID] = n
		}
	}
	roots := make([]domain.TreeNode, 0, len(index))
	for _, ref := range refs {
		n, ok := index[ref.ID]
		if !ok || n.EntityType != ref.EntityType {
			continue
		}
		roots = append(roots, n)
		delete(index, ref.ID)
	}
	span.SetAttributes(attribute.Int("hierarchy.nodes", len(roots)))
	return roots, nil
}

// Children builds the direct children of parent from its cached relations.
// Children are grouped by entity type in allow-list order, and keep the
// fetch order within a group. A parent whose relations were never cached has
// no children.
func (b *Builder) Children(ctx context.Context, parent domain.TreeNode) (_ []domain.TreeNode, err error) {
	ctx, span := b.tracer.Start(ctx, "hierarchy.Children",
		trace.WithAttributes(attribute.String("hierarchy.parent", parent.ID)))
	defer func() { endSpan(span, err) }()

	rels, ok := b.cache.Relations(parent.ID)
	if !ok {
		b.logger.Warn("no cached relations for node", "node", parent.ID)
		return []domain.TreeNode{}, nil
	}

	byType := b.partition(domain.Targets(rels))
	built, err := b.resolveAll(ctx, byType, parent.Level+1, parent.ID)
	if err != nil {
		return nil, err
	}

	children := make([]domain.TreeNode, 0, len(rels))
	for _, t := range b.cfg.SupportedTypes {
		children = append(children, built[t]...)
	}
	span.SetAttributes(attribute.Int("hierarchy.nodes", len(children)))
	return children, nil
}

// RefreshAttributes refetches every attribute scope of ref into the cache.
func (b *Builder) RefreshAttributes(ctx context.Context, ref domain.EntityRef) (err error) {
	ctx, span := b.tracer.Start(ctx, "hierarchy.RefreshAttributes",
		trace.WithAttributes(attribute.String("hierarchy.entity", ref.String())))
	defer func() { endSpan(span, err) }()

	g, gctx := errgroup.WithContext(ctx)
	for _, scope := range domain.AttributeScopes {
		g.Go(func() error {
			return b.loadAttributes(gctx, ref, scope)
		})
	}
	return g.Wait()
}

// Details is everything the cache knows about one entity.
type Details struct {
	Ref        domain.EntityRef                             `json:"ref"`
	Entity     *domain.Entity                               `json:"entity,omitempty"`
	Attributes map[domain.AttributeScope][]domain.Attribute `json:"attributes"`
	Relations  []domain.Relation                            `json:"relations"`
}

// Details returns the cached view of id. It reports false when the id has
// never been seen.
func (b *Builder) Details(id string) (Details, bool) {
	ref, ok := b.cache.Ref(id)
	if !ok {
		return Details{}, false
	}
	d := Details{
		Ref:        ref,
		Attributes: make(map[domain.AttributeScope][]domain.Attribute),
		Relations:  []domain.Relation{},
	}
	if e, ok := b.cache.Entity(id); ok {
		d.Entity = &e
	}
	for _, scope := range domain.AttributeScopes {
		if attrs, ok := b.cache.Attributes(id, scope); ok {
			d.Attributes[scope] = attrs
		}
	}
	if rels, ok := b.cache.Relations(id); ok {
		d.Relations = rels
	}
	return d, true
}

// partition groups refs by supported type, dropping repeats and unsupported
// types while preserving first-seen order.
func (b *Builder) partition(refs []domain.EntityRef) map[domain.EntityType][]string {
	byType := make(map[domain.EntityType][]string, len(b.cfg.SupportedTypes))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if !slices.Contains(b.cfg.SupportedTypes, ref.EntityType) {
			b.logger.Debug("skipping unsupported entity type", "entity", ref.String())
			continue
		}
		if _, dup := seen[ref.ID]; dup {
			continue
		}
		seen[ref.ID] = struct{}{}
		byType[ref.EntityType] = append(byType[ref.EntityType], ref.ID)
	}
	return byType
}

// resolveAll runs one resolve per non-empty type group in parallel.
func (b *Builder) resolveAll(ctx context.Context, byType map[domain.EntityType][]string, level int, parentID string) (map[domain.EntityType][]domain.TreeNode, error) {
	results := make([][]domain.TreeNode, len(b.cfg.SupportedTypes))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range b.cfg.SupportedTypes {
		ids := byType[t]
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			nodes, err := b.resolve(gctx, t, ids, level, parentID)
			if err != nil {
				return err
			}
			results[i] = nodes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[domain.EntityType][]domain.TreeNode, len(results))
	for i, t := range b.cfg.SupportedTypes {
		out[t] = results[i]
	}
	return out, nil
}

// resolve fetches one batch of entities of a single type, then their server
// attributes, then their relations, and builds a node per entity in fetch
// order. Every fetched item is cached before nodes are built.
func (b *Builder) resolve(ctx context.Context, entityType domain.EntityType, ids []string, level int, parentID string) ([]domain.TreeNode, error) {
	start := time.Now()
	entities, err := b.src.FetchEntities(ctx, entityType, ids)
	b.metrics.ObserveFetch(metrics.KindEntities, start, err)
	if err != nil {
		return nil, fmt.Errorf("fetching %s entities: %w", entityType, err)
	}
	for _, e := range entities {
		b.cache.SetEntity(e)
		b.metrics.CacheWrite("entity")
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.cfg.FetchConcurrency > 0 {
		g.SetLimit(b.cfg.FetchConcurrency)
	}
	for _, e := range entities {
		g.Go(func() error {
			return b.loadAttributes(gctx, e.ID, domain.ServerScope)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	if b.cfg.FetchConcurrency > 0 {
		g.SetLimit(b.cfg.FetchConcurrency)
	}
	for _, e := range entities {
		g.Go(func() error {
			return b.loadRelations(gctx, e.ID)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	nodes := make([]domain.TreeNode, 0, len(entities))
	for _, e := range entities {
		rels, _ := b.cache.Relations(e.ID.ID)
		nodes = append(nodes, domain.TreeNode{
			ID:          e.ID.ID,
			EntityType:  e.ID.EntityType,
			ProfileType: e.Type,
			Label:       b.label(e),
			Level:       level,
			Expandable:  len(rels) > 0,
			ParentID:    parentID,
		})
	}
	return nodes, nil
}

func (b *Builder) loadAttributes(ctx context.Context, ref domain.EntityRef, scope domain.AttributeScope) error {
	start := time.Now()
	attrs, err := b.src.FetchAttributes(ctx, ref, scope)
	b.metrics.ObserveFetch(metrics.KindAttributes, start, err)
	if err != nil {
		return fmt.Errorf("fetching %s attributes of %s: %w", scope, ref, err)
	}
	b.cache.SetAttributes(ref.ID, scope, attrs)
	b.metrics.CacheWrite("attribute")
	return nil
}

func (b *Builder) loadRelations(ctx context.Context, ref domain.EntityRef) error {
	start := time.Now()
	rels, err := b.src.FetchRelationsFrom(ctx, ref)
	b.metrics.ObserveFetch(metrics.KindRelations, start, err)
	if err != nil {
		return fmt.Errorf("fetching relations of %s: %w", ref, err)
	}
	b.cache.SetRelations(ref.ID, rels)
	b.metrics.CacheWrite("relation")
	return nil
}

func (b *Builder) label(e domain.Entity) string {
	attrs, _ := b.cache.Attributes(e.ID.ID, domain.ServerScope)
	if name, ok := domain.TextAttribute(attrs, b.cfg.LabelKey); ok {
		return name
	}
	return e.Name
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
