package hierarchy

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/johnwards/devicetree/internal/domain"
)

// NestedNode is one entity of a nested hierarchy view.
type NestedNode struct {
	ID         string            `json:"id"`
	EntityType domain.EntityType `json:"entityType"`
	Name       string            `json:"name"`
	Label      string            `json:"label"`
	Profile    string            `json:"profile"`
	ParentID   string            `json:"parentId,omitempty"`
	Attributes map[string]any    `json:"attributes"`
	Children   []*NestedNode     `json:"children"`
}

// Nest turns a pre-ordered flat node list, as kept by a tree, into nested
// nodes. Assets carry their SERVER_SCOPE attributes. Devices carry their
// CLIENT_SCOPE attributes overlaid with SERVER_SCOPE ones, so a key present
// in both takes the server value. Client attributes are fetched here since
// building nodes only loads the server scope.
func (b *Builder) Nest(ctx context.Context, nodes []domain.TreeNode) (_ []*NestedNode, err error) {
	ctx, span := b.tracer.Start(ctx, "hierarchy.Nest",
		trace.WithAttributes(attribute.Int("hierarchy.nodes", len(nodes))))
	defer func() { endSpan(span, err) }()

	g, gctx := errgroup.WithContext(ctx)
	if b.cfg.FetchConcurrency > 0 {
		g.SetLimit(b.cfg.FetchConcurrency)
	}
	for _, n := range nodes {
		if n.EntityType != domain.EntityTypeDevice {
			continue
		}
		if _, ok := b.cache.Attributes(n.ID, domain.ClientScope); ok {
			continue
		}
		g.Go(func() error {
			return b.loadAttributes(gctx, n.Ref(), domain.ClientScope)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	roots := []*NestedNode{}
	var stack []*NestedNode
	levels := []int{}
	for _, n := range nodes {
		nn := b.nested(n)
		for len(stack) > 0 && levels[len(levels)-1] >= n.Level {
			stack = stack[:len(stack)-1]
			levels = levels[:len(levels)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, nn)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, nn)
		}
		stack = append(stack, nn)
		levels = append(levels, n.Level)
	}
	return roots, nil
}

func (b *Builder) nested(n domain.TreeNode) *NestedNode {
	nn := &NestedNode{
		ID:         n.ID,
		EntityType: n.EntityType,
		Label:      n.Label,
		Profile:    n.ProfileType,
		ParentID:   n.ParentID,
		Children:   []*NestedNode{},
	}
	if e, ok := b.cache.Entity(n.ID); ok {
		nn.Name = e.Name
	}
	var attrs []domain.Attribute
	if n.EntityType == domain.EntityTypeDevice {
		client, _ := b.cache.Attributes(n.ID, domain.ClientScope)
		attrs = append(attrs, client...)
	}
	server, _ := b.cache.Attributes(n.ID, domain.ServerScope)
	nn.Attributes = domain.AttributeMap(append(attrs, server...))
	return nn
}
