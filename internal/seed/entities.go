package seed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/johnwards/devicetree/internal/domain"
)

type entityDef struct {
	id         string
	entityType domain.EntityType
	name       string
	profile    string
	label      string
}

// Homes are the HOME assets used as default roots. "home-cabin" has no
// relations and so shows up as a leaf.
var Homes = []string{"home-riverside", "home-lakeview", "home-cabin"}

var demoEntities = []entityDef{
	{id: "home-riverside", entityType: domain.EntityTypeAsset, name: "Riverside House", profile: "HOME"},
	{id: "home-lakeview", entityType: domain.EntityTypeAsset, name: "Lakeview Flat", profile: "HOME"},
	{id: "home-cabin", entityType: domain.EntityTypeAsset, name: "Mountain Cabin", profile: "HOME"},

	{id: "room-kitchen", entityType: domain.EntityTypeAsset, name: "Kitchen", profile: "ROOM"},
	{id: "room-living", entityType: domain.EntityTypeAsset, name: "Living Room", profile: "ROOM"},
	{id: "room-garage", entityType: domain.EntityTypeAsset, name: "Garage", profile: "ROOM"},
	{id: "room-lounge", entityType: domain.EntityTypeAsset, name: "Lounge", profile: "ROOM"},
	{id: "room-bedroom", entityType: domain.EntityTypeAsset, name: "Bedroom", profile: "ROOM"},

	{id: "dev-gateway-1", entityType: domain.EntityTypeDevice, name: "GW-0001", profile: "gateway", label: "Riverside gateway"},
	{id: "dev-gateway-2", entityType: domain.EntityTypeDevice, name: "GW-0002", profile: "gateway", label: "Lakeview gateway"},
	{id: "dev-thermo-1", entityType: domain.EntityTypeDevice, name: "TH-1001", profile: "thermostat"},
	{id: "dev-thermo-2", entityType: domain.EntityTypeDevice, name: "TH-1002", profile: "thermostat"},
	{id: "dev-lamp-1", entityType: domain.EntityTypeDevice, name: "LP-2001", profile: "lamp"},
	{id: "dev-lamp-2", entityType: domain.EntityTypeDevice, name: "LP-2002", profile: "lamp"},
	{id: "dev-plug-1", entityType: domain.EntityTypeDevice, name: "PL-3001", profile: "smart-plug"},
	{id: "dev-door-1", entityType: domain.EntityTypeDevice, name: "DR-4001", profile: "door-sensor"},
	{id: "dev-smoke-1", entityType: domain.EntityTypeDevice, name: "SM-5001", profile: "smoke-detector"},
}

// Entities inserts the demo assets and devices.
func Entities(ctx context.Context, db *sql.DB) error {
	for _, e := range demoEntities {
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO entities (id, entity_type, name, type, label, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			e.id, string(e.entityType), e.name, e.profile, e.label, seedTime,
		); err != nil {
			return fmt.Errorf("insert entity %s: %w", e.id, err)
		}
	}
	return nil
}
