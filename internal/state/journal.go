package state

import (
	"context"
	"time"
)

// PositionRecord is the durable audit copy of a ledger position. The
// in-memory ledger stays authoritative; the journal only ever trails it.
type PositionRecord struct {
	ID               string
	Symbol           string
	CexSide          string
	DexSide          string
	SizeUSD          float64
	EntryTime        time.Time
	EntryPrice       float64
	ExpectedReturn   float64
	Status           string
	FundingCollected float64
	NetPnl           float64
	UpdatedAt        time.Time
}

type Journal interface {
	Upsert(ctx context.Context, rec PositionRecord) error
	Get(ctx context.Context, id string) (PositionRecord, bool, error)
	List(ctx context.Context) ([]PositionRecord, error)
	Close() error
}
