package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FillSQLRepo struct {
	db *gorm.DB
}

func NewFillSQLRepo(db *gorm.DB) *FillSQLRepo {
	return &FillSQLRepo{
		db: db,
	}
}

func (s *FillSQLRepo) dbWithContext(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Create inserts one fill; a replayed exec id is a no-op.
func (r *FillSQLRepo) Create(ctx context.Context, record *FillRecord) (*FillRecord, error) {
	return record, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record).Error
}

func (r *FillSQLRepo) BulkCreate(ctx context.Context, records []*FillRecord) ([]*FillRecord, error) {
	return records, r.dbWithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(records).Error
}
