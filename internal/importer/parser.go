// internal/importer/parser.go
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidFileFormat = errors.New("IMPORT_PARSE_FAILED")

// EnrollmentRow is one parsed row of a partner-school enrollment report.
type EnrollmentRow struct {
	RowNum     int
	SchoolID   int64
	StudentNo  string
	SchoolYear string
	Term       string
	FirstName  string
	LastName   string
	Course     string
	YearLevel  string
}

var requiredColumns = []string{"school_id", "student_no", "school_year", "term", "first_name", "last_name"}

// Parser reads enrollment reports. Partner schools send either CSV exports
// or the XLSX template, so both are accepted; the header row decides column
// positions.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse dispatches on format: "csv" or "xlsx".
func (p *Parser) Parse(data []byte, format string) ([]EnrollmentRow, error) {
	switch strings.ToLower(format) {
	case "csv":
		return p.ParseCSV(data)
	case "xlsx":
		return p.ParseXLSX(data)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidFileFormat, format)
	}
}

func (p *Parser) ParseCSV(data []byte) ([]EnrollmentRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read csv: %v", ErrInvalidFileFormat, err)
		}
		records = append(records, record)
	}

	return p.parseRecords(records)
}

func (p *Parser) ParseXLSX(data []byte) ([]EnrollmentRow, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open xlsx: %v", ErrInvalidFileFormat, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidFileFormat)
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read rows: %v", ErrInvalidFileFormat, err)
	}

	return p.parseRecords(rows)
}

func (p *Parser) parseRecords(records [][]string) ([]EnrollmentRow, error) {
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: expected a header row and at least one data row", ErrInvalidFileFormat)
	}

	// Header decides column positions
	columnMap := make(map[string]int)
	for i, col := range records[0] {
		columnMap[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for _, col := range requiredColumns {
		if _, exists := columnMap[col]; !exists {
			return nil, fmt.Errorf("%w: missing required column: %s", ErrInvalidFileFormat, col)
		}
	}

	var out []EnrollmentRow
	for i, record := range records[1:] {
		rowNum := i + 2
		if isBlankRecord(record) {
			continue
		}

		row, err := parseRecord(record, columnMap, rowNum)
		if err != nil {
			return nil, fmt.Errorf("error parsing row %d: %w", rowNum, err)
		}
		out = append(out, *row)
	}

	return out, nil
}

func parseRecord(record []string, columnMap map[string]int, rowNum int) (*EnrollmentRow, error) {
	getValue := func(colName string) string {
		if idx, exists := columnMap[colName]; exists && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	schoolID, err := strconv.ParseInt(getValue("school_id"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid school_id: %w", err)
	}

	return &EnrollmentRow{
		RowNum:     rowNum,
		SchoolID:   schoolID,
		StudentNo:  getValue("student_no"),
		SchoolYear: getValue("school_year"),
		Term:       getValue("term"),
		FirstName:  getValue("first_name"),
		LastName:   getValue("last_name"),
		Course:     getValue("course"),
		YearLevel:  getValue("year_level"),
	}, nil
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
