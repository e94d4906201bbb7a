// internal/targets/load.go
package targets

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/xuri/excelize/v2"
)

// HeaderNames are the column titles recognised as the URL column, in priority order.
var HeaderNames = []string{"urls", "url", "links", "website"}

// FuzzyThreshold is the minimum Jaro-Winkler similarity for a fuzzy header match.
const FuzzyThreshold = 0.9

// ErrUnsupportedFormat is returned for target files that are not .xlsx, .csv or .txt.
var ErrUnsupportedFormat = errors.New("unsupported target list format")

// Load reads the target URLs from path. The format is chosen by extension.
func Load(path string) ([]string, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readWorkbook(path)
	case ".csv":
		rows, err = readCSV(path)
	case ".txt":
		return readLines(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, err
	}
	return FromRows(rows), nil
}

// FromRows extracts the URL column from tabular data. When the first row carries a
// recognised header it selects the column and is dropped. Otherwise the first column
// is used, and the first row is still dropped as an unnamed header unless its value
// looks like a URL.
func FromRows(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	col, hasHeader := urlColumn(rows[0])
	if hasHeader || !looksLikeURL(firstCell(rows[0])) {
		rows = rows[1:]
	}

	var urls []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			urls = append(urls, v)
		}
	}
	return urls
}

// urlColumn finds the URL column in a header row: exact name first, then the
// closest fuzzy match at or above FuzzyThreshold.
func urlColumn(header []string) (int, bool) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	for _, name := range HeaderNames {
		for i, h := range normalized {
			if h == name {
				return i, true
			}
		}
	}

	best, bestScore := -1, 0.0
	for i, h := range normalized {
		if h == "" {
			continue
		}
		for _, name := range HeaderNames {
			if score := matchr.JaroWinkler(h, name, false); score >= FuzzyThreshold && score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best >= 0 {
		return best, true
	}
	return 0, false
}

func firstCell(row []string) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(row[0])
}

// looksLikeURL accepts anything with a scheme or a dotted host and no spaces.
func looksLikeURL(v string) bool {
	if v == "" || strings.ContainsAny(v, " \t") {
		return false
	}
	return strings.Contains(v, "://") || strings.Contains(v, ".")
}

func readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		rows = append(rows, rec)
	}
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return urls, nil
}
