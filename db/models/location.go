package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Location is a geocoded address fragment captured through the location form,
// optionally enriched by the places-autocomplete widget. Locations are never
// deleted; sites and clients reference them by id.
type Location struct {
	LocationID    uint             `gorm:"column:location_id;primaryKey" json:"location_id"`
	StreetAddress string           `gorm:"column:street_address;index" json:"street_address"`
	Suburb        string           `gorm:"column:suburb;index" json:"suburb"`
	Town          string           `gorm:"column:town;index" json:"town"`
	Province      string           `gorm:"column:province;index" json:"province"`
	PostalCode    string           `gorm:"column:postal_code" json:"postal_code"`
	Latitude      *decimal.Decimal `gorm:"column:latitude;type:decimal(10,8)" json:"latitude"`
	Longitude     *decimal.Decimal `gorm:"column:longitude;type:decimal(11,8)" json:"longitude"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ProvinceOptions are the nine accepted province names
var ProvinceOptions = []string{
	"Eastern Cape",
	"Free State",
	"Gauteng",
	"KwaZulu-Natal",
	"Limpopo",
	"Mpumalanga",
	"Northern Cape",
	"North West",
	"Western Cape",
}

// SetaOptions are the accepted SETA classification bodies for clients
var SetaOptions = []string{
	"AgriSETA",
	"BANKSETA",
	"CATHSSETA",
	"CETA",
	"CHIETA",
	"ETDP SETA",
	"EWSETA",
	"FASSET",
	"FP&M SETA",
	"FoodBev SETA",
	"HWSETA",
	"INSETA",
	"LGSETA",
	"MICT SETA",
	"MQA",
	"PSETA",
	"SASSETA",
	"Services SETA",
	"TETA",
	"W&RSETA",
	"merSETA",
}
