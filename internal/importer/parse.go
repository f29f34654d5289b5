package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"garland/internal/services"
)

type column int

const (
	columnIgnore column = iota
	columnTitle
	columnReleaseDate
	columnWatched
	columnRating
	columnNote
)

// canonicalColumn maps a header cell onto an import field. Matching is
// case-insensitive and tolerant of spaces and underscores, so "Release Date",
// "release_date", and "releasedate" all land on the same field.
func canonicalColumn(header string) column {
	normalized := strings.ToLower(strings.TrimSpace(header))
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	switch normalized {
	case "title", "name":
		return columnTitle
	case "releasedate", "year":
		return columnReleaseDate
	case "watched":
		return columnWatched
	case "rating":
		return columnRating
	case "review", "notes", "note":
		return columnNote
	default:
		return columnIgnore
	}
}

// ParseFile decodes a spreadsheet into import rows, choosing the decoder by
// file extension (.csv, .xlsx). Any structural problem aborts the whole
// import with a parse error and zero rows.
func ParseFile(path string) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "parse", "open", path, err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(file)
	case ".xlsx", ".xlsm":
		return ParseXLSX(file)
	default:
		return nil, services.Wrap(services.ErrParse, "parse", "detect format",
			fmt.Sprintf("unsupported file extension %q (want .csv or .xlsx)", filepath.Ext(path)), nil)
	}
}

// ParseCSV decodes a comma-separated spreadsheet with a header row.
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "parse", "decode csv", "malformed csv", err)
	}
	return rowsFromRecords(records)
}

// ParseXLSX decodes the first sheet of an Excel workbook with a header row.
func ParseXLSX(r io.Reader) ([]Row, error) {
	workbook, err := excelize.OpenReader(r)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "parse", "open workbook", "malformed xlsx", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, services.Wrap(services.ErrParse, "parse", "select sheet", "workbook has no sheets", nil)
	}
	records, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "parse", "read sheet", sheets[0], err)
	}
	return rowsFromRecords(records)
}

func rowsFromRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, services.Wrap(services.ErrParse, "parse", "read header", "input is empty", nil)
	}

	header := records[0]
	fields := make(map[int]column, len(header))
	hasTitle := false
	for i, cell := range header {
		col := canonicalColumn(cell)
		if col == columnIgnore {
			continue
		}
		if _, taken := fields[i]; taken {
			continue
		}
		fields[i] = col
		if col == columnTitle {
			hasTitle = true
		}
	}
	if !hasTitle {
		return nil, services.Wrap(services.ErrParse, "parse", "map header",
			"no title column found (recognized aliases: title, name)", nil)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := Row{}
		for i, cell := range record {
			col, ok := fields[i]
			if !ok {
				continue
			}
			value := strings.TrimSpace(cell)
			if value == "" {
				continue
			}
			switch col {
			case columnTitle:
				row.Title = value
			case columnReleaseDate:
				row.ReleaseDate = value
			case columnWatched:
				if watched, ok := parseWatched(value); ok {
					row.Watched = &watched
				}
			case columnRating:
				if rating, ok := parseRating(value); ok {
					row.Rating = &rating
				}
			case columnNote:
				row.Note = value
			}
		}
		if row.Title == "" {
			// Rows without a title cannot be reconciled; drop silently.
			continue
		}
		row.Index = len(rows)
		rows = append(rows, row)
	}
	return rows, nil
}

func parseWatched(value string) (bool, bool) {
	switch strings.ToLower(value) {
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	parsed, err := strconv.ParseBool(strings.ToLower(value))
	if err != nil {
		return false, false
	}
	return parsed, true
}

// parseRating accepts numeric ratings on the 1-10 scale; anything else is
// dropped as no signal.
func parseRating(value string) (float64, bool) {
	rating, err := strconv.ParseFloat(value, 64)
	if err != nil || rating < 1 || rating > 10 {
		return 0, false
	}
	return rating, true
}

// IsParseError reports whether an error came from the parse stage.
func IsParseError(err error) bool {
	return errors.Is(err, services.ErrParse)
}
