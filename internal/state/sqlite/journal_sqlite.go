package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"funding-arb-bot/internal/state"

	_ "modernc.org/sqlite"
)

type Journal struct {
	db *sql.DB
}

func New(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Journal{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		cex_side TEXT NOT NULL,
		dex_side TEXT NOT NULL,
		size_usd REAL NOT NULL,
		entry_time INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		expected_return REAL NOT NULL,
		status TEXT NOT NULL,
		funding_collected REAL NOT NULL,
		net_pnl REAL NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

func (j *Journal) Upsert(ctx context.Context, rec state.PositionRecord) error {
	_, err := j.db.ExecContext(ctx, `INSERT INTO positions (
		id, symbol, cex_side, dex_side, size_usd, entry_time, entry_price,
		expected_return, status, funding_collected, net_pnl, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		funding_collected = excluded.funding_collected,
		net_pnl = excluded.net_pnl,
		updated_at = excluded.updated_at`,
		rec.ID,
		rec.Symbol,
		rec.CexSide,
		rec.DexSide,
		rec.SizeUSD,
		rec.EntryTime.UnixMilli(),
		rec.EntryPrice,
		rec.ExpectedReturn,
		rec.Status,
		rec.FundingCollected,
		rec.NetPnl,
		rec.UpdatedAt.UnixMilli(),
	)
	return err
}

func (j *Journal) Get(ctx context.Context, id string) (state.PositionRecord, bool, error) {
	row := j.db.QueryRowContext(ctx, `SELECT
		id, symbol, cex_side, dex_side, size_usd, entry_time, entry_price,
		expected_return, status, funding_collected, net_pnl, updated_at
	FROM positions WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return state.PositionRecord{}, false, nil
		}
		return state.PositionRecord{}, false, err
	}
	return rec, true, nil
}

func (j *Journal) List(ctx context.Context) ([]state.PositionRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT
		id, symbol, cex_side, dex_side, size_usd, entry_time, entry_price,
		expected_return, status, funding_collected, net_pnl, updated_at
	FROM positions ORDER BY entry_time`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []state.PositionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *Journal) Close() error {
	return j.db.Close()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (state.PositionRecord, error) {
	var rec state.PositionRecord
	var entryMS, updatedMS int64
	if err := row.Scan(
		&rec.ID,
		&rec.Symbol,
		&rec.CexSide,
		&rec.DexSide,
		&rec.SizeUSD,
		&entryMS,
		&rec.EntryPrice,
		&rec.ExpectedReturn,
		&rec.Status,
		&rec.FundingCollected,
		&rec.NetPnl,
		&updatedMS,
	); err != nil {
		return state.PositionRecord{}, err
	}
	rec.EntryTime = time.UnixMilli(entryMS).UTC()
	rec.UpdatedAt = time.UnixMilli(updatedMS).UTC()
	return rec, nil
}
