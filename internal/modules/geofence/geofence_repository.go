package geofence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-and-compliance/internal/models"
	"delivery-and-compliance/pkg/geo"
)

// RepositoryInterface loads delivery zone configuration. Zones are read once
// at startup; the evaluator treats them as static afterwards.
type RepositoryInterface interface {
	ListZones(ctx context.Context) ([]models.DeliveryZone, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: db}
}

// ListZones returns all zones ordered by position, the explicit first-match
// precedence order. A zone with a degenerate polygon fails the whole load:
// containment against a zero-area polygon is undefined, and silently skipping
// a configured zone would shrink the service area unnoticed.
func (r *Repository) ListZones(ctx context.Context) ([]models.DeliveryZone, error) {
	query := `
		SELECT id, name, polygon, delivery_fee, minimum_order, estimated_time, position, is_active
		FROM delivery_zones
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository.ListZones.Query: %w", err)
	}
	defer rows.Close()

	var zones []models.DeliveryZone
	for rows.Next() {
		var z models.DeliveryZone
		var polygonJSON []byte
		if err := rows.Scan(&z.ID, &z.Name, &polygonJSON, &z.DeliveryFee, &z.MinimumOrder, &z.EstimatedTime, &z.Position, &z.IsActive); err != nil {
			return nil, fmt.Errorf("repository.ListZones.Scan: %w", err)
		}
		if err := json.Unmarshal(polygonJSON, &z.Polygon); err != nil {
			return nil, fmt.Errorf("repository.ListZones: zone %s polygon: %w", z.ID, err)
		}
		if !geo.PolygonValid(z.Polygon) {
			return nil, fmt.Errorf("repository.ListZones: zone %s: %w", z.ID, models.ErrInvalidZonePolygon)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListZones: %w", err)
	}
	return zones, nil
}
