package repo

import (
	"gorm.io/gorm"
)

type IRepo interface {
	Fill() IFill
	OrderEvent() IOrderEvent
}

type Repo struct {
	engineDB *gorm.DB
}

func NewRepo(engineDB *gorm.DB) IRepo {
	return &Repo{
		engineDB: engineDB,
	}
}

func (r *Repo) Fill() IFill {
	return NewFillSQLRepo(r.engineDB)
}

func (r *Repo) OrderEvent() IOrderEvent {
	return NewOrderEventSQLRepo(r.engineDB)
}
