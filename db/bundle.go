package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	BundleTypeJS  = "js"
	BundleTypeCSS = "css"
)

type BundleSizes struct {
	Raw  int64 `json:"raw"`
	Gzip int64 `json:"gzip"`
}

// Bundle records the compiled size of one language/brand of a version. An
// unbranded bundle has a nil Brand and is stored with an empty brand so the
// unique index covers it.
type Bundle struct {
	Id        string      `gorm:"primaryKey;size:36"`
	VersionId string      `gorm:"NOT NULL;size:36;uniqueIndex:idx_bundles_version_type_brand"`
	Type      string      `gorm:"NOT NULL;size:8;uniqueIndex:idx_bundles_version_type_brand"`
	Brand     *string     `gorm:"NOT NULL;default:'';size:64;uniqueIndex:idx_bundles_version_type_brand"`
	Url       string      `gorm:"NOT NULL;type:text"`
	Sizes     BundleSizes `gorm:"serializer:json;type:text"`
	CreatedAt time.Time   `gorm:"NOT NULL"`
	UpdatedAt time.Time   `gorm:"NOT NULL"`
}

func (*Bundle) TableName() string {
	return "bundles"
}

func (b *Bundle) BeforeCreate(*gorm.DB) error {
	if b.Id == "" {
		b.Id = uuid.NewString()
	}
	return nil
}

func (b *Bundle) BeforeSave(*gorm.DB) error {
	if b.Brand == nil {
		unbranded := ""
		b.Brand = &unbranded
	}
	return nil
}

func (b *Bundle) AfterSave(*gorm.DB) error {
	return b.AfterFind(nil)
}

func (b *Bundle) AfterFind(*gorm.DB) error {
	if b.Brand != nil && *b.Brand == "" {
		b.Brand = nil
	}
	return nil
}
