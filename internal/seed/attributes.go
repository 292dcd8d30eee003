package seed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/johnwards/devicetree/internal/domain"
)

type attributeDef struct {
	entityID string
	scope    domain.AttributeScope
	key      string
	value    any
}

// Server-scope "name" attributes override the stored entity name as the
// tree label.
var demoAttributes = []attributeDef{
	{entityID: "home-riverside", scope: domain.ServerScope, key: "address", value: "12 River Lane"},
	{entityID: "home-lakeview", scope: domain.ServerScope, key: "address", value: "4B Lake View Court"},
	{entityID: "room-living", scope: domain.ServerScope, key: "floor", value: 0},
	{entityID: "room-bedroom", scope: domain.ServerScope, key: "floor", value: 1},
	{entityID: "dev-thermo-1", scope: domain.ServerScope, key: "name", value: "Living room thermostat"},
	{entityID: "dev-thermo-1", scope: domain.SharedScope, key: "targetTemperature", value: 21.5},
	{entityID: "dev-thermo-1", scope: domain.ClientScope, key: "firmware", value: "1.4.2"},
	{entityID: "dev-thermo-2", scope: domain.ServerScope, key: "name", value: "Lounge thermostat"},
	{entityID: "dev-lamp-1", scope: domain.ServerScope, key: "name", value: "Reading lamp"},
	{entityID: "dev-lamp-1", scope: domain.ClientScope, key: "active", value: true},
	{entityID: "dev-plug-1", scope: domain.ServerScope, key: "name", value: "Kettle plug"},
	{entityID: "dev-door-1", scope: domain.ServerScope, key: "inactivityTimeout", value: 3600},
	{entityID: "dev-smoke-1", scope: domain.SharedScope, key: "alarmVolume", value: "high"},
}

// Attributes inserts the demo attributes.
func Attributes(ctx context.Context, db *sql.DB) error {
	for _, a := range demoAttributes {
		value, err := json.Marshal(a.value)
		if err != nil {
			return fmt.Errorf("encode attribute %s.%s: %w", a.entityID, a.key, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT OR IGNORE INTO attributes (entity_id, scope, key, value, last_update_ts)
			 VALUES (?, ?, ?, ?, ?)`,
			a.entityID, string(a.scope), a.key, string(value), int64(1704067200000),
		); err != nil {
			return fmt.Errorf("insert attribute %s.%s: %w", a.entityID, a.key, err)
		}
	}
	return nil
}
