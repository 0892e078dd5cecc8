package storage

import (
	"camerashop/backend/internal/models"

	"gorm.io/gorm"
)

// paginate applies LIMIT/OFFSET for a normalized page request. A zero size
// leaves the query unbounded.
func paginate(page models.PageRequest) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Size <= 0 {
			return db
		}
		return db.Offset(page.Offset()).Limit(page.Size)
	}
}
