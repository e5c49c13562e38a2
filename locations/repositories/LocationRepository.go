package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"training-crm-backend/db/models"
	"training-crm-backend/locations/services"

	"gorm.io/gorm"
)

type LocationRepository interface {
	CreateLocation(ctx context.Context, location *models.Location) (*models.Location, error)
	GetLocationByID(ctx context.Context, locationID uint) (*models.Location, error)
	LocationExists(ctx context.Context, streetAddress, suburb, town, province, postalCode string) (bool, error)
	CheckDuplicates(ctx context.Context, streetAddress, suburb, town string) ([]models.Location, error)
}

type locationRepository struct {
	db    *gorm.DB
	cache *services.LocationCache
}

func NewLocationRepository(db *gorm.DB, cache *services.LocationCache) LocationRepository {
	return &locationRepository{
		db:    db,
		cache: cache,
	}
}

// CreateLocation inserts a new location and rebuilds the hierarchy cache so
// the new row is visible to dropdowns immediately
func (r *locationRepository) CreateLocation(ctx context.Context, location *models.Location) (*models.Location, error) {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, err
	}

	r.cache.Invalidate(ctx)
	if _, err := r.cache.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("location created but cache rebuild failed: %w", err)
	}

	return r.GetLocationByID(ctx, location.LocationID)
}

func (r *locationRepository) GetLocationByID(ctx context.Context, locationID uint) (*models.Location, error) {
	var location models.Location
	err := r.db.WithContext(ctx).First(&location, "location_id = ?", locationID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("location with id %d not found", locationID)
		}
		return nil, err
	}
	return &location, nil
}

// LocationExists reports whether an address is already captured: all four
// name parts case-insensitively equal and the postal code exactly equal.
func (r *locationRepository) LocationExists(ctx context.Context, streetAddress, suburb, town, province, postalCode string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Location{}).
		Where("LOWER(street_address) = LOWER(?)", streetAddress).
		Where("LOWER(suburb) = LOWER(?)", suburb).
		Where("LOWER(town) = LOWER(?)", town).
		Where("LOWER(province) = LOWER(?)", province).
		Where("postal_code = ?", postalCode).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CheckDuplicates returns up to ten likely matches for a partly-typed
// address. Town and suburb terms are each matched against BOTH columns, so
// a suburb typed into the town box still surfaces the existing row.
func (r *locationRepository) CheckDuplicates(ctx context.Context, streetAddress, suburb, town string) ([]models.Location, error) {
	streetAddress = strings.TrimSpace(streetAddress)
	suburb = strings.TrimSpace(suburb)
	town = strings.TrimSpace(town)

	db := r.db.WithContext(ctx).Model(&models.Location{})

	var clauses []string
	var args []interface{}

	if town != "" {
		clauses = append(clauses, "(LOWER(town) LIKE LOWER(?) OR LOWER(suburb) LIKE LOWER(?))")
		args = append(args, "%"+town+"%", "%"+town+"%")
	}
	if suburb != "" {
		clauses = append(clauses, "(LOWER(suburb) LIKE LOWER(?) OR LOWER(town) LIKE LOWER(?))")
		args = append(args, "%"+suburb+"%", "%"+suburb+"%")
	}
	if streetAddress != "" {
		clauses = append(clauses, "(LOWER(street_address) = LOWER(?) OR LOWER(street_address) LIKE LOWER(?))")
		args = append(args, streetAddress, "%"+streetAddress+"%")
	}

	if len(clauses) == 0 {
		return []models.Location{}, nil
	}

	var locations []models.Location
	err := db.Where(strings.Join(clauses, " OR "), args...).
		Order("street_address, suburb, town").
		Limit(10).
		Find(&locations).Error
	if err != nil {
		return nil, err
	}
	return locations, nil
}
