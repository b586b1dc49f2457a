package database

import (
	"gorm.io/gorm"

	"github.com/yukikurage/task-approval-api/internal/utils"
)

// Paginate applies offset and limit from the request's page parameters
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params.Limit <= 0 {
			return db.Offset(params.Offset)
		}
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// NewestFirst orders by a timestamp column, breaking ties on the table's id
// so pages stay stable when rows share a millisecond.
func NewestFirst(table, column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(table + "." + column + " DESC").Order(table + ".id DESC")
	}
}
