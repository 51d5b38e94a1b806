package storage

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"olx-price-index/models"
	"olx-price-index/utils"
)

// Header is the first row of every series file.
var Header = []string{"date", "count", "min", "max", "mean", "median"}

// CSVStore keeps one data/<slug>.csv file per product.
//
// The duplicate-day guard is check-then-act: ShouldUpdateToday followed by
// Append is not atomic, so two concurrent writers for the same product can
// both append a row for the same day. Callers must serialize per product.
type CSVStore struct {
	dir    string
	logger *utils.Logger
}

// NewCSVStore returns a store rooted at dir. The directory is created on
// the first Append.
func NewCSVStore(dir string, logger *utils.Logger) *CSVStore {
	if logger == nil {
		logger = utils.Nop()
	}
	return &CSVStore{dir: dir, logger: logger}
}

// Path returns the series file of a product.
func (s *CSVStore) Path(slug string) string {
	return filepath.Join(s.dir, slug+".csv")
}

// ShouldUpdateToday reports whether no row for today's date exists yet.
// A missing file means the product was never updated.
func (s *CSVStore) ShouldUpdateToday(slug string, today time.Time) (bool, error) {
	f, err := os.Open(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: open %s: %w", slug, err)
	}
	defer f.Close()

	day := today.Format(models.DateLayout)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.HasPrefix(sc.Text(), day) {
			s.logger.Info("[store] Data for %s already exists in %s", day, s.Path(slug))
			return false, nil
		}
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("store: scan %s: %w", slug, err)
	}
	return true, nil
}

// Append writes one stats row, preceded by the header when the file is new
// or empty. The rows are written with a single append and prior rows are
// never touched.
func (s *CSVStore) Append(slug string, stats *models.DailyStats) error {
	if stats == nil {
		return errors.New("store: nil stats")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("store: create data dir: %w", err)
	}

	path := s.Path(slug)
	writeHeader := true
	if fi, err := os.Stat(path); err == nil {
		writeHeader = fi.Size() == 0
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("store: stat %s: %w", path, err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if writeHeader {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("store: write header: %w", err)
		}
	}
	if err := w.Write(Row(stats)); err != nil {
		return fmt.Errorf("store: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("store: flush: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("store: append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("store: close %s: %w", path, err)
	}

	s.logger.Info("[store] Appended stats to %s", path)
	return nil
}

// ReadAll returns every row of a product's series sorted by date.
// A missing file is an empty series.
func (s *CSVStore) ReadAll(slug string) ([]models.DailyStats, error) {
	rows, err := s.read(slug)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	return rows, nil
}

// Latest returns the last row in file order, or nil for an empty series.
func (s *CSVStore) Latest(slug string) (*models.DailyStats, error) {
	rows, err := s.read(slug)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (s *CSVStore) read(slug string) ([]models.DailyStats, error) {
	f, err := os.Open(s.Path(slug))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", slug, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(Header)

	var rows []models.DailyStats
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: read %s: %w", slug, err)
		}
		if line == 1 && rec[0] == Header[0] {
			continue
		}
		st, err := ParseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("store: %s line %d: %w", slug, line, err)
		}
		rows = append(rows, st)
	}
	return rows, nil
}

// Row formats stats in the fixed column order.
func Row(s *models.DailyStats) []string {
	return []string{
		s.Day(),
		strconv.Itoa(s.Count),
		strconv.Itoa(s.MinPrice),
		strconv.Itoa(s.MaxPrice),
		formatFloat(s.MeanPrice),
		formatFloat(s.MedianPrice),
	}
}

// ParseRow is the inverse of Row.
func ParseRow(rec []string) (models.DailyStats, error) {
	var st models.DailyStats
	if len(rec) != len(Header) {
		return st, fmt.Errorf("expected %d fields, got %d", len(Header), len(rec))
	}

	date, err := time.ParseInLocation(models.DateLayout, rec[0], time.Local)
	if err != nil {
		return st, fmt.Errorf("parse date: %w", err)
	}
	st.Date = date

	ints := []*int{&st.Count, &st.MinPrice, &st.MaxPrice}
	for i, dst := range ints {
		v, err := parseInt(rec[i+1])
		if err != nil {
			return st, fmt.Errorf("parse %s: %w", Header[i+1], err)
		}
		*dst = v
	}

	if st.MeanPrice, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return st, fmt.Errorf("parse mean: %w", err)
	}
	if st.MedianPrice, err = strconv.ParseFloat(rec[5], 64); err != nil {
		return st, fmt.Errorf("parse median: %w", err)
	}
	return st, nil
}

// parseInt accepts "100" and "100.0".
func parseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// formatFloat writes the shortest representation, always with a decimal
// point: 200 -> "200.0", 166.67 -> "166.67".
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
