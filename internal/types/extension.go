package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lifecycle states shared by Extension and GenerationRun. Transitions only
// move forward; complete and failed are terminal.
const (
	StatusPending   = "pending"
	StatusAnalyzing = "analyzing"
	StatusBuilding  = "building"
	StatusPackaging = "packaging"
	StatusComplete  = "complete"
	StatusFailed    = "failed"
)

func IsTerminalStatus(status string) bool {
	return status == StatusComplete || status == StatusFailed
}

// statusRank orders the lifecycle so transitions can be checked as strictly
// increasing. Analyzing is optional and skipped when analysis was not
// requested with the generation.
var statusRank = map[string]int{
	StatusPending:   0,
	StatusAnalyzing: 1,
	StatusBuilding:  2,
	StatusPackaging: 3,
	StatusComplete:  4,
	StatusFailed:    4,
}

// CanTransition reports whether moving from one lifecycle state to another
// respects forward-only ordering. Failed is reachable from any non-terminal
// state; nothing leaves a terminal state.
func CanTransition(from, to string) bool {
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	if IsTerminalStatus(from) {
		return false
	}
	if to == StatusFailed {
		return true
	}
	return toRank > fromRank
}

type Extension struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User            *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Description     string         `gorm:"column:description" json:"description"`
	Prompt          string         `gorm:"column:prompt;type:text;not null" json:"prompt"`
	ExtensionType   string         `gorm:"column:extension_type;not null;index" json:"extension_type"`
	Permissions     datatypes.JSON `gorm:"column:permissions;type:jsonb" json:"permissions"`
	HostPermissions datatypes.JSON `gorm:"column:host_permissions;type:jsonb" json:"host_permissions"`
	Manifest        datatypes.JSON `gorm:"column:manifest;type:jsonb" json:"manifest"`
	Status          string         `gorm:"column:status;not null;index" json:"status"` // pending|analyzing|building|packaging|complete|failed
	Error           string         `gorm:"column:error" json:"error"`
	ArchiveKey      string         `gorm:"column:archive_key" json:"archive_key"`
	ArchiveSize     int64          `gorm:"column:archive_size;not null;default:0" json:"archive_size"`
	CompletedAt     *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Extension) TableName() string { return "extension" }
