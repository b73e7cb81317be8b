package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/coffeeliuwei/stock-training/internal/model"
)

var (
	dailyHeader = []string{"trade_date", "open", "high", "low", "close", "vol", "amount"}
	stockHeader = []string{"ts_code", "symbol", "name", "area", "industry", "market", "list_date"}
)

// CSVStore keeps one CSV file per code under <dir>/daily and the stock list
// in <dir>/stock_basic.csv.
type CSVStore struct {
	dir string
	mu  sync.Mutex
}

// NewCSVStore creates the directory layout if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "daily"), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) dailyPath(code string) string {
	return filepath.Join(s.dir, "daily", code+".csv")
}

func (s *CSVStore) LatestDate(code string) (string, bool, error) {
	rows, err := s.Load(code)
	if err != nil || len(rows) == 0 {
		return "", false, err
	}
	latest := rows[0].TradeDate
	for _, r := range rows[1:] {
		if r.TradeDate > latest {
			latest = r.TradeDate
		}
	}
	return latest, true, nil
}

// Load returns the stored rows, or nil when the code has no file yet.
func (s *CSVStore) Load(code string) ([]model.RawBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(code)
}

func (s *CSVStore) load(code string) ([]model.RawBar, error) {
	records, err := readCSV(s.dailyPath(code))
	if err != nil || records == nil {
		return nil, err
	}
	col := columns(records[0])
	rows := make([]model.RawBar, 0, len(records)-1)
	for i, rec := range records[1:] {
		r := model.RawBar{TradeDate: cell(rec, col, "trade_date")}
		if r.TradeDate == "" {
			return nil, fmt.Errorf("%s line %d: missing trade_date", code, i+2)
		}
		for name, dst := range map[string]**float64{
			"open": &r.Open, "high": &r.High, "low": &r.Low, "close": &r.Close,
			"vol": &r.Volume, "amount": &r.Amount,
		} {
			v, err := parseOptional(cell(rec, col, name))
			if err != nil {
				return nil, fmt.Errorf("%s line %d %s: %w", code, i+2, name, err)
			}
			*dst = v
		}
		rows = append(rows, r)
	}
	return rows, nil
}

func (s *CSVStore) Merge(code string, rows []model.RawBar) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.load(code)
	if err != nil {
		return 0, err
	}
	merged := mergeRows(old, rows)
	records := make([][]string, 0, len(merged)+1)
	records = append(records, dailyHeader)
	for _, r := range merged {
		records = append(records, []string{
			r.TradeDate, formatOptional(r.Open), formatOptional(r.High), formatOptional(r.Low),
			formatOptional(r.Close), formatOptional(r.Volume), formatOptional(r.Amount),
		})
	}
	if err := writeCSV(s.dailyPath(code), records); err != nil {
		return 0, err
	}
	return len(merged), nil
}

func (s *CSVStore) SaveStockList(list []model.StockInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := [][]string{stockHeader}
	for _, st := range list {
		records = append(records, []string{st.Code, st.Symbol, st.Name, st.Area, st.Industry, st.Market, st.ListDate})
	}
	return writeCSV(filepath.Join(s.dir, "stock_basic.csv"), records)
}

func (s *CSVStore) LoadStockList() ([]model.StockInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := readCSV(filepath.Join(s.dir, "stock_basic.csv"))
	if err != nil || records == nil {
		return nil, err
	}
	col := columns(records[0])
	list := make([]model.StockInfo, 0, len(records)-1)
	for _, rec := range records[1:] {
		list = append(list, model.StockInfo{
			Code:     cell(rec, col, "ts_code"),
			Symbol:   cell(rec, col, "symbol"),
			Name:     cell(rec, col, "name"),
			Area:     cell(rec, col, "area"),
			Industry: cell(rec, col, "industry"),
			Market:   cell(rec, col, "market"),
			ListDate: cell(rec, col, "list_date"),
		})
	}
	return list, nil
}

func (s *CSVStore) Close() error { return nil }

// readCSV returns nil records for a missing file.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records, nil
}

// writeCSV replaces path atomically.
func writeCSV(path string, records [][]string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}

func columns(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[h] = i
	}
	return col
}

func cell(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return rec[i]
}

func parseOptional(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
