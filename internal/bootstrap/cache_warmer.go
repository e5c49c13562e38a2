package bootstrap

import (
	"context"
	"fmt"

	clients_repositories "training-crm-backend/clients/repositories"
	locations_services "training-crm-backend/locations/services"
	sites_services "training-crm-backend/sites/services"
)

// WarmCaches rebuilds the location hierarchy and primes the head-site cache
// for every live client, so the first page render after a restart or the
// nightly maintenance run is served warm.
func WarmCaches(
	ctx context.Context,
	locations *locations_services.LocationCache,
	clients clients_repositories.ClientRepository,
	headSites *sites_services.HeadSiteCache,
) error {
	if _, err := locations.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuilding location cache: %w", err)
	}

	summaries, err := clients.GetForDropdown(ctx)
	if err != nil {
		return fmt.Errorf("listing clients for head-site warm-up: %w", err)
	}

	ids := make([]uint, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.ID)
	}
	headSites.Refresh(ctx, ids)
	return nil
}
