// Package survey reads the tabular survey exports: the primary response table
// (one row per respondent) and the optional gift table joined by name.
package survey

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"fivem/resonance/internal/errors"
)

// Columns names the CSV headers the parser looks for.
type Columns struct {
	Name     string `mapstructure:"name"`
	Score    string `mapstructure:"score"`
	Category string `mapstructure:"category"`
	Order    string `mapstructure:"order"`
	Gift     string `mapstructure:"gift"`
}

// DefaultColumns matches the questionnaire export: Q2 is the intensity
// answer and doubles as the secondary ordering key, Q4_Switch the category.
func DefaultColumns() Columns {
	return Columns{
		Name:     "Name",
		Score:    "Q2",
		Category: "Q4_Switch",
		Order:    "Q2",
		Gift:     "Gift",
	}
}

// Row is one respondent.
type Row struct {
	Name     string
	Category string
	Score    float64
	Order    float64
	Gift     string
}

// ParseRows reads the primary table. Every required column must be present in
// the header; a missing column or a non-numeric score/order value fails the
// whole parse with ErrInvalidInput. Empty categories are kept as-is and map to
// the fallback color later.
func ParseRows(r io.Reader, cols Columns) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, invalid(errors.New("survey table is empty (no header row)"))
	}
	if err != nil {
		return nil, invalid(errors.Wrap(err, "reading survey header"))
	}

	idx := headerIndex(headers)
	var missing []string
	lookup := func(col string) int {
		i, ok := idx[col]
		if !ok {
			missing = append(missing, col)
			return -1
		}
		return i
	}
	nameCol := lookup(cols.Name)
	scoreCol := lookup(cols.Score)
	catCol := lookup(cols.Category)
	orderCol := scoreCol
	if cols.Order != cols.Score {
		orderCol = lookup(cols.Order)
	}
	if len(missing) > 0 {
		return nil, errors.WithHintf(
			invalid(errors.Newf("survey table is missing required column(s): %s", strings.Join(missing, ", "))),
			"found columns: %s", strings.Join(headers, ", "))
	}

	var rows []Row
	line := 1
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, invalid(errors.Wrapf(err, "survey row %d", line))
		}

		score, err := parseNumber(rec[scoreCol])
		if err != nil {
			return nil, invalid(errors.Newf("survey row %d: column %s: %q is not a number", line, cols.Score, rec[scoreCol]))
		}
		order := score
		if orderCol != scoreCol {
			order, err = parseNumber(rec[orderCol])
			if err != nil {
				return nil, invalid(errors.Newf("survey row %d: column %s: %q is not a number", line, cols.Order, rec[orderCol]))
			}
		}

		rows = append(rows, Row{
			Name:     strings.TrimSpace(rec[nameCol]),
			Category: strings.TrimSpace(rec[catCol]),
			Score:    score,
			Order:    order,
		})
	}
	return rows, nil
}

// ParseGifts reads the optional gift table into name -> gift text. Blank
// gifts are skipped; the first non-blank gift for a name wins.
func ParseGifts(r io.Reader, cols Columns) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, invalid(errors.Wrap(err, "reading gift header"))
	}

	idx := headerIndex(headers)
	nameCol, okName := idx[cols.Name]
	giftCol, okGift := idx[cols.Gift]
	if !okName || !okGift {
		return nil, invalid(errors.Newf("gift table needs columns %s and %s", cols.Name, cols.Gift))
	}

	gifts := make(map[string]string)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed gift rows are skipped; the table is optional.
			continue
		}
		if nameCol >= len(rec) || giftCol >= len(rec) {
			continue
		}
		name := strings.TrimSpace(rec[nameCol])
		gift := strings.TrimSpace(rec[giftCol])
		if name == "" || gift == "" {
			continue
		}
		if _, seen := gifts[name]; !seen {
			gifts[name] = gift
		}
	}
	return gifts, nil
}

// JoinGifts copies gift text onto rows by name. A nil map means no gift table
// was available and leaves every Gift empty; otherwise names without an entry
// receive placeholder.
func JoinGifts(rows []Row, gifts map[string]string, placeholder string) []Row {
	if gifts == nil {
		return rows
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		if g, ok := gifts[r.Name]; ok {
			r.Gift = g
		} else {
			r.Gift = placeholder
		}
		out[i] = r
	}
	return out
}

// ReadRowsFile opens path and parses it with ParseRows.
func ReadRowsFile(path string, cols Columns) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithHint(
				errors.Mark(errors.Wrapf(err, "survey table %s", path), errors.ErrNotFound),
				"set input.survey_path in resonance.toml or pass --input")
		}
		return nil, errors.Wrapf(err, "opening survey table %s", path)
	}
	defer f.Close()
	rows, err := ParseRows(f, cols)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return rows, nil
}

// ReadGiftsFile opens path and parses it with ParseGifts. A missing file is
// reported with ErrNotFound so callers can treat it as "no gift table".
func ReadGiftsFile(path string, cols Columns) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Mark(errors.Wrapf(err, "gift table %s", path), errors.ErrNotFound)
		}
		return nil, errors.Wrapf(err, "opening gift table %s", path)
	}
	defer f.Close()
	gifts, err := ParseGifts(f, cols)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return gifts, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := idx[h]; !dup {
			idx[h] = i
		}
	}
	return idx
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func invalid(err error) error {
	return errors.Mark(err, errors.ErrInvalidInput)
}
