// Package tabular turns exported CSV and Excel files into entity.Dataset
// values: header verbatim, rows in file order, cells classified by
// entity.ParseCell.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var (
	// ErrUnsupportedFormat is returned for extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrUnreadable wraps every I/O or decode failure of a supported file.
	ErrUnreadable = errors.New("dataset unreadable")
)

//nolint:gochecknoglobals // constant byte sequence
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Supported reports whether name has an extension Read understands.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	default:
		return false
	}
}

// Read decodes r according to the extension of name.
func Read(name string, r io.Reader) (entity.Dataset, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(name, r)
	case ".xlsx":
		return ReadXLSX(name, r)
	default:
		return entity.Dataset{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadCSV reads a comma separated export. Input that is not valid UTF-8 is
// decoded as GB18030, which covers exports saved by Excel on Chinese locales.
func ReadCSV(name string, r io.Reader) (entity.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return entity.Dataset{}, unreadable(name, err)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		data, _, err = transform.Bytes(simplifiedchinese.GB18030.NewDecoder(), data)
		if err != nil {
			return entity.Dataset{}, unreadable(name, err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return entity.Dataset{}, unreadable(name, errors.New("no header row"))
		}
		return entity.Dataset{}, unreadable(name, err)
	}
	header = append([]string(nil), header...)

	var rows [][]entity.Cell
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return entity.Dataset{}, unreadable(name, err)
		}
		rows = append(rows, parseRow(record))
	}

	return entity.NewDataset(name, header, rows), nil
}

// ReadXLSX reads the first worksheet of a workbook. Rows without any value
// are skipped.
func ReadXLSX(name string, r io.Reader) (entity.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return entity.Dataset{}, unreadable(name, err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return entity.Dataset{}, unreadable(name, errors.New("workbook has no sheets"))
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return entity.Dataset{}, unreadable(name, err)
	}
	if len(records) == 0 {
		return entity.Dataset{}, unreadable(name, errors.New("no header row"))
	}

	rows := make([][]entity.Cell, 0, len(records)-1)
	for _, record := range records[1:] {
		if blank(record) {
			continue
		}
		rows = append(rows, parseRow(record))
	}

	return entity.NewDataset(name, records[0], rows), nil
}

func parseRow(record []string) []entity.Cell {
	cells := make([]entity.Cell, len(record))
	for i, raw := range record {
		cells[i] = entity.ParseCell(raw)
	}
	return cells
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func unreadable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnreadable, name, err)
}
