package journal

import (
	"context"
	"time"
)

// RealizedBetween sums realized P&L over trades closed within [start, end).
func (j *SQLite) RealizedBetween(ctx context.Context, start, end time.Time) (float64, error) {
	var sum float64
	err := j.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(realized_pl), 0)
		FROM trades
		WHERE close_time >= ? AND close_time < ?`, start, end).Scan(&sum)
	if err != nil {
		return 0, err
	}
	return sum, nil
}

// LastClosed returns up to k most recently closed trades for a symbol,
// newest first.
func (j *SQLite) LastClosed(ctx context.Context, symbol string, k int) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, direction, volume, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE symbol = ?
		ORDER BY close_time DESC
		LIMIT ?`, symbol, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ClosedSince returns trades for a symbol closed at or after since, oldest first.
func (j *SQLite) ClosedSince(ctx context.Context, symbol string, since time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, direction, volume, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE symbol = ? AND close_time >= ?
		ORDER BY close_time ASC`, symbol, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListClosedBetween returns all trades closed within [start, end), oldest
// first. Used by the CLI journal reports.
func (j *SQLite) ListClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT trade_id, symbol, direction, volume, entry_price, exit_price, open_time, close_time, realized_pl, reason
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrades(rows rowScanner) ([]TradeRecord, error) {
	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.TradeID,
			&rec.Symbol,
			&rec.Direction,
			&rec.Volume,
			&rec.EntryPrice,
			&rec.ExitPrice,
			&rec.OpenTime,
			&rec.CloseTime,
			&rec.RealizedPL,
			&rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
