package repo

import "context"

type IFill interface {
	Create(ctx context.Context, record *FillRecord) (*FillRecord, error)
	BulkCreate(ctx context.Context, records []*FillRecord) ([]*FillRecord, error)
}

type IOrderEvent interface {
	Create(ctx context.Context, record *OrderEventRecord) (*OrderEventRecord, error)
	BulkCreate(ctx context.Context, records []*OrderEventRecord) ([]*OrderEventRecord, error)
}
