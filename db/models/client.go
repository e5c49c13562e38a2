package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ClientStatus string

const (
	ColdCallClient ClientStatus = "Cold Call"
	LeadClient     ClientStatus = "Lead"
	ActiveClient   ClientStatus = "Active Client"
	LostClient     ClientStatus = "Lost Client"
)

// ClientStatuses lists every accepted client status, used by validation
var ClientStatuses = []ClientStatus{
	ColdCallClient,
	LeadClient,
	ActiveClient,
	LostClient,
}

// Client represents a training-services customer record.
// The repositories do not assume this exact column set: legacy databases name
// some of these columns differently (see db/schema candidate lists), so reads
// and writes go through the column resolver rather than GORM field mapping.
type Client struct {
	ClientID              uint         `gorm:"column:client_id;primaryKey" json:"id"`
	ClientName            string       `gorm:"column:client_name;not null;index" json:"client_name"`
	CompanyRegistrationNr string       `gorm:"column:company_registration_nr;index" json:"company_registration_nr"`
	Seta                  string       `gorm:"column:seta" json:"seta"` // SETA classification body
	ClientStatus          ClientStatus `gorm:"column:client_status;index" json:"client_status"`
	FinancialYearEnd      *time.Time   `gorm:"column:financial_year_end" json:"financial_year_end"`
	BbbeeVerificationDate *time.Time   `gorm:"column:bbbee_verification_date" json:"bbbee_verification_date"`

	// Hierarchy: a sub-client points at its main client. Single level only,
	// a main client never carries a MainClientID itself.
	MainClientID *uint    `gorm:"column:main_client_id;index" json:"main_client_id"`
	MainClient   *Client  `gorm:"foreignKey:MainClientID" json:"main_client,omitempty"`
	SubClients   []Client `gorm:"foreignKey:MainClientID" json:"sub_clients,omitempty"`

	// Uploaded quote documents (URL list), stored as a JSON column
	Quotes datatypes.JSON `gorm:"column:quotes" json:"quotes"`

	Contacts       []ClientContact       `gorm:"foreignKey:ClientID" json:"contacts,omitempty"`
	Communications []ClientCommunication `gorm:"foreignKey:ClientID" json:"communications,omitempty"`
	Sites          []Site                `gorm:"foreignKey:ClientID" json:"sites,omitempty"`

	// Audit fields
	CreatedBy string         `gorm:"column:created_by" json:"created_by"`
	UpdatedBy *string        `gorm:"column:updated_by" json:"updated_by"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index" json:"-"`
}

// ClientContact is a contact person attached to a client. Uniqueness is
// (client_id, email); the oldest row per client is treated as the primary
// contact for display.
type ClientContact struct {
	ContactID       uint      `gorm:"column:contact_id;primaryKey" json:"contact_id"`
	ClientID        uint      `gorm:"column:client_id;not null;index:idx_contact_client_email,unique" json:"client_id"`
	Email           string    `gorm:"column:email;not null;index:idx_contact_client_email,unique" json:"email"`
	FirstName       *string   `gorm:"column:first_name" json:"first_name"`
	Surname         *string   `gorm:"column:surname" json:"surname"`
	CellphoneNumber *string   `gorm:"column:cellphone_number" json:"cellphone_number"`
	TelNumber       *string   `gorm:"column:tel_number" json:"tel_number"`
	Position        *string   `gorm:"column:position" json:"position"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ClientContact) TableName() string {
	return "client_contact_persons"
}

// ClientCommunication is one row in the append-only communication log.
// The latest entry per client is derived by ordering on
// (communication_date DESC, communication_id DESC), never by mutation.
type ClientCommunication struct {
	CommunicationID   uint      `gorm:"column:communication_id;primaryKey" json:"communication_id"`
	ClientID          uint      `gorm:"column:client_id;not null;index" json:"client_id"`
	CommunicationType string    `gorm:"column:communication_type;not null" json:"communication_type"`
	Subject           string    `gorm:"column:subject" json:"subject"`
	Content           string    `gorm:"column:content" json:"content"`
	CommunicationDate time.Time `gorm:"column:communication_date;autoCreateTime" json:"communication_date"`
	UserID            *uint     `gorm:"column:user_id" json:"user_id"`
}

func (ClientCommunication) TableName() string {
	return "client_communications"
}
