package orderbook

import "github.com/shopspring/decimal"

// Fill is one (incoming, resting) match. Price is always the resting
// order's price: price improvement goes to the incoming order.
type Fill struct {
	OrderID        string
	CounterOrderID string
	Price          decimal.Decimal
	Qty            decimal.Decimal
	Side           Side // side of the incoming order
}

// SubmitResult reports what happened to a submitted order: the fills it
// produced (in match order), the unmatched remainder, and whether that
// remainder now rests in the book.
type SubmitResult struct {
	Fills     []Fill
	Remaining decimal.Decimal
	Rested    bool
	Parked    bool // stop order waiting for its trigger
}
