package relay

import (
	"time"

	"gorm.io/gorm"
)

// ArchivedEvent is one outbox record copied into the archive database.
type ArchivedEvent struct {
	Seq         uint64    `gorm:"primaryKey;autoIncrement:false"`
	Type        string    `gorm:"size:64;index"`
	Attributes  string    `gorm:"type:text"`
	Digest      string    `gorm:"size:64;not null"`
	CommittedAt time.Time `gorm:"index"`
	ArchivedAt  time.Time
}

// Cursor tracks how far a named consumer has read the outbox.
type Cursor struct {
	Name      string `gorm:"primaryKey;size:64"`
	Seq       uint64
	UpdatedAt time.Time
}

// AutoMigrate creates or updates the archive tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&ArchivedEvent{}, &Cursor{})
}
