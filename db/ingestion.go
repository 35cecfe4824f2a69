package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IngestionType string

const (
	IngestionTypeVersion IngestionType = "version" // GitHub url and tag
	IngestionTypeNpm     IngestionType = "npm"     // npm package name and version
	IngestionTypeBundle  IngestionType = "bundle"  // refresh bundles of an existing version
)

// Ingestion is a queued request to materialize one version.
type Ingestion struct {
	Id                 string        `gorm:"primaryKey;size:36"`
	Url                *string       `gorm:"size:255;index:idx_ingestion_url_tag"`
	Tag                *string       `gorm:"size:128;index:idx_ingestion_url_tag"`
	PackageName        *string       `gorm:"column:packageName;size:214;index:idx_ingestion_package_version"`
	Version            *string       `gorm:"size:128;index:idx_ingestion_package_version"`
	Type               IngestionType `gorm:"NOT NULL;size:16;default:version"`
	IngestionAttempts  int           `gorm:"NOT NULL;default:0"`
	IngestionStartedAt *time.Time
	CreatedAt          time.Time `gorm:"NOT NULL;index:idx_ingestion_created_at"`
	UpdatedAt          time.Time `gorm:"NOT NULL"`
}

func (*Ingestion) TableName() string {
	return "ingestion_queue"
}

func (i *Ingestion) BeforeCreate(*gorm.DB) error {
	if i.Id == "" {
		i.Id = uuid.NewString()
	}
	if i.Type == "" {
		i.Type = IngestionTypeVersion
	}
	return nil
}

// IsInProgress reports whether a worker has claimed the ingestion.
func (i *Ingestion) IsInProgress() bool {
	return i.IngestionStartedAt != nil
}

// EarliestAttemptAt is the first instant the ingestion may be claimed given
// its attempt count. ClaimNextIngestion applies the same rule in SQL.
func (i *Ingestion) EarliestAttemptAt(baseBackoff time.Duration) time.Time {
	return i.CreatedAt.Add(backoffDelay(baseBackoff, i.IngestionAttempts))
}
