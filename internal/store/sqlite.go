package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

// SQLiteStore persists daily bars and the stock list to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets chart readers query while a sync writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logrus.Infof("sqlite store opened: %s", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			code       TEXT NOT NULL,
			trade_date TEXT NOT NULL,
			open       REAL,
			high       REAL,
			low        REAL,
			close      REAL,
			vol        REAL,
			amount     REAL,
			PRIMARY KEY (code, trade_date)
		)`,
		`CREATE TABLE IF NOT EXISTS stocks (
			ts_code   TEXT PRIMARY KEY,
			symbol    TEXT,
			name      TEXT,
			area      TEXT,
			industry  TEXT,
			market    TEXT,
			list_date TEXT
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) LatestDate(code string) (string, bool, error) {
	var latest sql.NullString
	err := s.db.QueryRow(`SELECT MAX(trade_date) FROM daily_bars WHERE code = ?`, code).Scan(&latest)
	if err != nil {
		return "", false, fmt.Errorf("query latest date: %w", err)
	}
	return latest.String, latest.Valid, nil
}

func (s *SQLiteStore) Load(code string) ([]model.RawBar, error) {
	rows, err := s.db.Query(`SELECT trade_date, open, high, low, close, vol, amount
		FROM daily_bars WHERE code = ? ORDER BY trade_date`, code)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var out []model.RawBar
	for rows.Next() {
		var (
			r                             model.RawBar
			open, high, low, cl, vol, amt sql.NullFloat64
		)
		if err := rows.Scan(&r.TradeDate, &open, &high, &low, &cl, &vol, &amt); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		r.Open, r.High, r.Low, r.Close = nullable(open), nullable(high), nullable(low), nullable(cl)
		r.Volume, r.Amount = nullable(vol), nullable(amt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Merge(code string, bars []model.RawBar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO daily_bars
		(code, trade_date, open, high, low, close, vol, amount)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(code, trade_date) DO UPDATE SET
			open = excluded.open, high = excluded.high, low = excluded.low,
			close = excluded.close, vol = excluded.vol, amount = excluded.amount`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(code, b.TradeDate, b.Open, b.High, b.Low, b.Close, b.Volume, b.Amount); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", code, b.TradeDate, err)
		}
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM daily_bars WHERE code = ?`, code).Scan(&count); err != nil {
		return 0, fmt.Errorf("count bars: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) SaveStockList(list []model.StockInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stocks`); err != nil {
		return fmt.Errorf("clear stocks: %w", err)
	}
	for _, st := range list {
		if _, err := tx.Exec(`INSERT INTO stocks
			(ts_code, symbol, name, area, industry, market, list_date)
			VALUES (?,?,?,?,?,?,?)`,
			st.Code, st.Symbol, st.Name, st.Area, st.Industry, st.Market, st.ListDate,
		); err != nil {
			return fmt.Errorf("insert stock %s: %w", st.Code, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadStockList() ([]model.StockInfo, error) {
	rows, err := s.db.Query(`SELECT ts_code, symbol, name, area, industry, market, list_date
		FROM stocks ORDER BY ts_code`)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var list []model.StockInfo
	for rows.Next() {
		var st model.StockInfo
		if err := rows.Scan(&st.Code, &st.Symbol, &st.Name, &st.Area, &st.Industry, &st.Market, &st.ListDate); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, st)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) Close() error {
	logrus.Info("closing sqlite store")
	return s.db.Close()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
