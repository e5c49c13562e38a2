package models

import "time"

// Site is an address record belonging to exactly one client. A site without
// a parent is the client's head site; sites pointing at a parent are
// sub-sites. Nothing constrains a client to a single head site; the
// repositories take the first row by site_id wherever one is needed.
type Site struct {
	SiteID       uint    `gorm:"column:site_id;primaryKey" json:"site_id"`
	ClientID     uint    `gorm:"column:client_id;not null;index" json:"client_id"`
	SiteName     string  `gorm:"column:site_name" json:"site_name"`
	AddressLine1 *string `gorm:"column:address_line_1" json:"address_line_1"`
	AddressLine2 *string `gorm:"column:address_line_2" json:"address_line_2"`
	Address      *string `gorm:"column:address" json:"address"`

	// PlaceID references a Location row for suburb/town/province resolution
	PlaceID      *uint     `gorm:"column:place_id;index" json:"place_id"`
	ParentSiteID *uint     `gorm:"column:parent_site_id;index" json:"parent_site_id"`
	ParentSite   *Site     `gorm:"foreignKey:ParentSiteID" json:"parent_site,omitempty"`
	SubSites     []Site    `gorm:"foreignKey:ParentSiteID" json:"sub_sites,omitempty"`
	Location     *Location `gorm:"foreignKey:PlaceID" json:"location,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsHeadSite reports whether this row is a client's primary site record
func (s *Site) IsHeadSite() bool {
	return s.ParentSiteID == nil
}
