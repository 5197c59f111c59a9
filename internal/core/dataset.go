package core

// dataset.go reads the pokemon.csv layout: one header row, then one record
// per creature variant. Columns are matched case-insensitively and extra
// columns (Total, for instance) are ignored.

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Dataset column names.
const (
	ColNumber         = "#"
	ColName           = "Name"
	ColType1          = "Type 1"
	ColType2          = "Type 2"
	ColHP             = "HP"
	ColAttack         = "Attack"
	ColDefense        = "Defense"
	ColSpecialAttack  = "Sp. Atk"
	ColSpecialDefense = "Sp. Def"
	ColSpeed          = "Speed"
	ColGeneration     = "Generation"
	ColLegendary      = "Legendary"
)

// RequiredColumns lists every column the importer reads.
var RequiredColumns = []string{
	ColNumber, ColName, ColType1, ColType2,
	ColHP, ColAttack, ColDefense, ColSpecialAttack, ColSpecialDefense, ColSpeed,
	ColGeneration, ColLegendary,
}

// DatasetRow is one parsed record. Type2 is "" when the creature has a
// single type. RawName keeps the Name cell as read, for error reports.
type DatasetRow struct {
	Row        int
	Line       int
	Number     int
	Combined   string
	RawName    string
	Type1      string
	Type2      string
	Stats      Stats
	Generation int
	Legendary  bool
}

// DatasetReader yields rows from a dataset source in file order.
type DatasetReader struct {
	r      *csv.Reader
	header HeaderIndex
	row    int
}

// NewDatasetReader strips a UTF-8 BOM, reads the header and checks that all
// required columns are present.
func NewDatasetReader(src io.Reader) (*DatasetReader, error) {
	br := stripUTF8BOM(bufio.NewReader(src))

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyFile
		}
		return nil, fmt.Errorf("invalid csv header: %w", err)
	}

	idx := MakeHeaderIndex(header)
	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return &DatasetReader{r: r, header: idx}, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

// Next returns the next row, or io.EOF after the last one. Rows whose cells
// are all blank are skipped. Parse failures come back as *RowError.
func (d *DatasetReader) Next() (DatasetRow, error) {
	for {
		record, err := d.r.Read()
		if err == io.EOF {
			return DatasetRow{}, io.EOF
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.Line
			}
			return DatasetRow{}, &RowError{Row: d.row + 1, Line: line, Err: fmt.Errorf("invalid csv: %w", err)}
		}
		if isEmptyRow(record) {
			continue
		}

		d.row++
		line, _ := d.r.FieldPos(0)
		row, err := d.parse(record)
		row.Row, row.Line = d.row, line
		if err != nil {
			return row, &RowError{Row: d.row, Line: line, Err: err}
		}
		return row, nil
	}
}

func (d *DatasetReader) parse(record []string) (DatasetRow, error) {
	h := d.header
	row := DatasetRow{
		Combined: h.Get(record, ColName),
		RawName:  h.Raw(record, ColName),
		Type1:    h.Get(record, ColType1),
		Type2:    h.Get(record, ColType2),
	}

	ints := []struct {
		col string
		dst *int
	}{
		{ColNumber, &row.Number},
		{ColHP, &row.Stats.HP},
		{ColAttack, &row.Stats.Attack},
		{ColDefense, &row.Stats.Defense},
		{ColSpecialAttack, &row.Stats.SpecialAttack},
		{ColSpecialDefense, &row.Stats.SpecialDefense},
		{ColSpeed, &row.Stats.Speed},
		{ColGeneration, &row.Generation},
	}
	for _, f := range ints {
		n, err := ParsePositiveInt(f.col, h.Get(record, f.col))
		if err != nil {
			return row, err
		}
		*f.dst = n
	}

	for _, f := range []struct{ col, v string }{{ColType1, row.Type1}, {ColType2, row.Type2}} {
		if err := CheckLength(f.col, f.v); err != nil {
			return row, err
		}
	}

	legendary, err := ParseFlag(ColLegendary, h.Get(record, ColLegendary))
	if err != nil {
		return row, err
	}
	row.Legendary = legendary

	return row, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
