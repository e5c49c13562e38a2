package repositories

import (
	"context"
	"errors"
	"fmt"

	"training-crm-backend/db/models"
	"training-crm-backend/sites/services"

	"gorm.io/gorm"
)

type SiteRepository interface {
	GetSiteByID(ctx context.Context, siteID uint) (*models.Site, error)
	GetSitesByClient(ctx context.Context, clientID uint) ([]models.Site, error)
	GetHeadSite(ctx context.Context, clientID uint) (*models.Site, error)
	SaveHeadSite(ctx context.Context, site *models.Site) (*models.Site, error)
	CreateSubSite(ctx context.Context, site *models.Site) (*models.Site, error)
	DeleteSite(ctx context.Context, siteID uint) error
}

type siteRepository struct {
	db        *gorm.DB
	headSites *services.HeadSiteCache
}

func NewSiteRepository(db *gorm.DB, headSites *services.HeadSiteCache) SiteRepository {
	return &siteRepository{
		db:        db,
		headSites: headSites,
	}
}

func (r *siteRepository) GetSiteByID(ctx context.Context, siteID uint) (*models.Site, error) {
	var site models.Site
	err := r.db.WithContext(ctx).Preload("Location").First(&site, "site_id = ?", siteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &site, nil
}

// GetSitesByClient returns all of a client's sites, head site first then
// sub-sites by site id
func (r *siteRepository) GetSitesByClient(ctx context.Context, clientID uint) ([]models.Site, error) {
	var sites []models.Site
	err := r.db.WithContext(ctx).
		Preload("Location").
		Where("client_id = ?", clientID).
		Order("parent_site_id IS NOT NULL, site_id").
		Find(&sites).Error
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func (r *siteRepository) GetHeadSite(ctx context.Context, clientID uint) (*models.Site, error) {
	site, ok := r.headSites.Get(ctx, clientID)
	if !ok {
		return nil, nil
	}
	return site, nil
}

// SaveHeadSite creates or updates a client's head site. A client keeps at
// most one head row; an existing one is updated in place rather than
// duplicated. The head-site cache entry is refreshed after the write.
func (r *siteRepository) SaveHeadSite(ctx context.Context, site *models.Site) (*models.Site, error) {
	if site.ClientID == 0 {
		return nil, errors.New("head site requires a client id")
	}
	site.ParentSiteID = nil

	var existing models.Site
	err := r.db.WithContext(ctx).
		Where("parent_site_id IS NULL AND client_id = ?", site.ClientID).
		Order("site_id").
		First(&existing).Error
	switch {
	case err == nil:
		site.SiteID = existing.SiteID
		if err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"site_name":      site.SiteName,
			"address_line_1": site.AddressLine1,
			"address_line_2": site.AddressLine2,
			"address":        site.Address,
			"place_id":       site.PlaceID,
		}).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(site).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	r.headSites.Refresh(ctx, []uint{site.ClientID})
	return r.GetSiteByID(ctx, site.SiteID)
}

// CreateSubSite adds a site under an existing head site. Sub-sites never
// nest: the parent must itself be a head site.
func (r *siteRepository) CreateSubSite(ctx context.Context, site *models.Site) (*models.Site, error) {
	if site.ParentSiteID == nil || *site.ParentSiteID == 0 {
		return nil, errors.New("sub-site requires a parent site id")
	}

	var parent models.Site
	err := r.db.WithContext(ctx).First(&parent, "site_id = ?", *site.ParentSiteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("parent site %d not found", *site.ParentSiteID)
		}
		return nil, err
	}
	if !parent.IsHeadSite() {
		return nil, fmt.Errorf("site %d is not a head site and cannot have sub-sites", parent.SiteID)
	}
	if site.ClientID == 0 {
		site.ClientID = parent.ClientID
	} else if site.ClientID != parent.ClientID {
		return nil, errors.New("sub-site must belong to the same client as its parent")
	}

	if err := r.db.WithContext(ctx).Create(site).Error; err != nil {
		return nil, err
	}
	return r.GetSiteByID(ctx, site.SiteID)
}

func (r *siteRepository) DeleteSite(ctx context.Context, siteID uint) error {
	var site models.Site
	err := r.db.WithContext(ctx).First(&site, "site_id = ?", siteID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("site with id %d not found", siteID)
		}
		return err
	}

	if site.IsHeadSite() {
		var subCount int64
		if err := r.db.WithContext(ctx).Model(&models.Site{}).
			Where("parent_site_id = ?", site.SiteID).
			Count(&subCount).Error; err != nil {
			return err
		}
		if subCount > 0 {
			return fmt.Errorf("site %d still has %d sub-sites", site.SiteID, subCount)
		}
	}

	if err := r.db.WithContext(ctx).Delete(&site).Error; err != nil {
		return err
	}

	r.headSites.Refresh(ctx, []uint{site.ClientID})
	return nil
}
