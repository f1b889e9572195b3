package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ExtensionTemplate struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Slug          string         `gorm:"column:slug;uniqueIndex;not null" json:"slug"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	Description   string         `gorm:"column:description" json:"description"`
	ExtensionType string         `gorm:"column:extension_type;not null;index" json:"extension_type"`
	Complexity    string         `gorm:"column:complexity;not null" json:"complexity"` // Simple|Medium|Advanced
	EstimatedTime string         `gorm:"column:estimated_time" json:"estimated_time"`
	Permissions   datatypes.JSON `gorm:"type:jsonb;column:permissions" json:"permissions"`
	Features      datatypes.JSON `gorm:"type:jsonb;column:features" json:"features"`
	UseCases      datatypes.JSON `gorm:"type:jsonb;column:use_cases" json:"use_cases"`
	IsFeatured    bool           `gorm:"column:is_featured;not null;default:false" json:"is_featured"`
	UsageCount    int            `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExtensionTemplate) TableName() string { return "extension_template" }
