package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtensionComponent struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ExtensionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"extension_id"`
	Extension   *Extension     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ExtensionID;references:ID" json:"extension,omitempty"`
	FilePath    string         `gorm:"column:file_path;not null" json:"file_path"`
	Content     string         `gorm:"column:content;type:text" json:"content"`
	FileType    string         `gorm:"column:file_type;not null" json:"file_type"` // json|html|css|js|md|png
	Description string         `gorm:"column:description" json:"description"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ExtensionComponent) TableName() string { return "extension_component" }
