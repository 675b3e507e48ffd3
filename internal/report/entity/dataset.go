package entity

// Dataset is one exported sheet: the header row verbatim plus rows in file
// order. Every row has exactly len(Columns) cells.
type Dataset struct {
	Name    string
	Columns []string
	Rows    [][]Cell
}

// NewDataset builds a Dataset, padding short rows with missing cells and
// dropping cells beyond the header width.
func NewDataset(name string, columns []string, rows [][]Cell) Dataset {
	normalized := make([][]Cell, 0, len(rows))
	for _, row := range rows {
		fixed := make([]Cell, len(columns))
		copy(fixed, row)
		normalized = append(normalized, fixed)
	}

	return Dataset{
		Name:    name,
		Columns: columns,
		Rows:    normalized,
	}
}

// ColumnIndex returns the position of the first column named exactly name,
// or -1.
func (d Dataset) ColumnIndex(name string) int {
	for i, col := range d.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns the cells of column i in row order.
func (d Dataset) Column(i int) []Cell {
	if i < 0 || i >= len(d.Columns) {
		return nil
	}

	cells := make([]Cell, 0, len(d.Rows))
	for _, row := range d.Rows {
		cells = append(cells, row[i])
	}
	return cells
}
