package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ResourceKindHardware = "hardware"
	ResourceKindSoftware = "software"
)

// Resource is a hardware or software inventory line. Available + InUse + Maintenance
// must equal Total; only the status update path checks it.
type Resource struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Kind             string          `gorm:"type:varchar(20);not null;index" json:"kind"`
	Name             string          `gorm:"type:varchar(255);not null" json:"name"`
	Category         string          `gorm:"type:varchar(100)" json:"category"`
	Description      string          `gorm:"type:text" json:"description"`
	Vendor           string          `gorm:"type:varchar(255)" json:"vendor"`
	SerialNumber     string          `gorm:"type:varchar(100)" json:"serial_number,omitempty"`
	Version          string          `gorm:"type:varchar(50)" json:"version,omitempty"`
	Total            int             `gorm:"not null;default:0" json:"total"`
	Available        int             `gorm:"not null;default:0" json:"available"`
	InUse            int             `gorm:"not null;default:0" json:"in_use"`
	Maintenance      int             `gorm:"not null;default:0" json:"maintenance"`
	UnitCost         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"unit_cost"`
	LicenseExpiresAt *datatypes.Date `json:"license_expires_at,omitempty"`
	Images           []string        `gorm:"serializer:json;type:jsonb" json:"images"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Venue is a bookable location. It has no quantity partition.
type Venue struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Location    string         `gorm:"type:varchar(255)" json:"location"`
	Capacity    int            `gorm:"not null;default:0" json:"capacity"`
	Description string         `gorm:"type:text" json:"description"`
	Amenities   []string       `gorm:"serializer:json;type:jsonb" json:"amenities"`
	Images      []string       `gorm:"serializer:json;type:jsonb" json:"images"`
	Available   bool           `gorm:"default:true" json:"available"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
