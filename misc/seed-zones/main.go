// Command seed-zones loads delivery zone definitions from a JSON file into
// the delivery_zones table. Run it once per environment; the API reads the
// table at startup.
//
// Usage: go run main.go zones.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/pkg/geo"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run main.go <zones.json>")
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to read zones file: %v", err)
	}

	var zones []models.DeliveryZone
	if err := json.Unmarshal(data, &zones); err != nil {
		log.Fatalf("Failed to parse zones file: %v", err)
	}
	for _, z := range zones {
		if !geo.PolygonValid(z.Polygon) {
			log.Fatalf("Zone %q has a degenerate polygon", z.Name)
		}
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer conn.Close(ctx)

	for i, z := range zones {
		if z.ID == "" {
			z.ID = uuid.NewString()
		}
		polygonJSON, err := json.Marshal(z.Polygon)
		if err != nil {
			log.Fatalf("Failed to marshal polygon for %q: %v", z.Name, err)
		}
		_, err = conn.Exec(ctx, `
			INSERT INTO delivery_zones (id, name, polygon, delivery_fee, minimum_order, estimated_time, position, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				polygon = EXCLUDED.polygon,
				delivery_fee = EXCLUDED.delivery_fee,
				minimum_order = EXCLUDED.minimum_order,
				estimated_time = EXCLUDED.estimated_time,
				position = EXCLUDED.position,
				is_active = EXCLUDED.is_active`,
			z.ID, z.Name, polygonJSON, z.DeliveryFee, z.MinimumOrder, z.EstimatedTime, i+1, z.IsActive)
		if err != nil {
			log.Fatalf("Failed to insert zone %q: %v", z.Name, err)
		}
	}

	fmt.Printf("Seeded %d zones\n", len(zones))
}
