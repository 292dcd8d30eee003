package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/johnwards/devicetree/internal/domain"
)

type relationDef struct {
	from string
	to   []string
}

// demoRelations lists "Contains" edges in insertion order. Homes list a
// device before their rooms so the tree's assets-first grouping is visible.
var demoRelations = []relationDef{
	{from: "home-riverside", to: []string{"dev-gateway-1", "room-kitchen", "room-living", "room-garage"}},
	{from: "home-lakeview", to: []string{"dev-gateway-2", "room-lounge", "room-bedroom"}},
	{from: "room-kitchen", to: []string{"dev-smoke-1", "dev-plug-1"}},
	{from: "room-living", to: []string{"dev-thermo-1", "dev-lamp-1"}},
	{from: "room-garage", to: []string{"dev-door-1"}},
	{from: "room-lounge", to: []string{"dev-thermo-2"}},
	{from: "room-bedroom", to: []string{"dev-lamp-2"}},
}

func entityTypeOf(id string) (domain.EntityType, error) {
	for _, e := range demoEntities {
		if e.id == id {
			return e.entityType, nil
		}
	}
	return "", fmt.Errorf("unknown seed entity %s", id)
}

// Relations inserts the demo containment edges.
func Relations(ctx context.Context, db *sql.DB) error {
	for _, rd := range demoRelations {
		fromType, err := entityTypeOf(rd.from)
		if err != nil {
			return err
		}
		for _, to := range rd.to {
			toType, err := entityTypeOf(to)
			if err != nil {
				return err
			}
			if _, err := db.ExecContext(ctx,
				`INSERT OR IGNORE INTO relations (from_id, from_type, to_id, to_type, relation_type, type_group, created_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rd.from, string(fromType), to, string(toType),
				domain.RelationContains, domain.RelationGroupCommon, seedTime,
			); err != nil {
				return fmt.Errorf("insert relation %s -> %s: %w", rd.from, to, err)
			}
		}
	}
	return nil
}
