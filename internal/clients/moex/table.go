package moex

// Table is a decoded ISS tabular block. The ISS API returns every section as
// a column-name list plus a row list; column presence and order vary by venue,
// so fields are always addressed by name through the column index built once
// per response.
type Table struct {
	index map[string]int
	data  [][]interface{}
}

// NewTable builds a Table from an ISS block's column list and row data.
func NewTable(columns []string, data [][]interface{}) Table {
	index := make(map[string]int, len(columns))
	for i, col := range columns {
		index[col] = i
	}
	return Table{index: index, data: data}
}

// Len returns the number of rows in the table.
func (t Table) Len() int {
	return len(t.data)
}

// Row returns the i-th row. Callers must check Len first.
func (t Table) Row(i int) Row {
	return Row{index: t.index, values: t.data[i]}
}

// HasColumn reports whether the response exposed the named column.
func (t Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row is a single decoded ISS row with by-name field access.
type Row struct {
	index  map[string]int
	values []interface{}
}

// Float returns the named column as a float64. The second return is false
// when the column is absent, null, or not numeric. Zero is a valid value.
func (r Row) Float(name string) (float64, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.values) {
		return 0, false
	}
	switch v := r.values[i].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// PositiveFloat returns the named column only when it holds a usable (> 0)
// numeric value. ISS reports missing prices as null or 0 depending on the
// venue, so both are treated as unusable.
func (r Row) PositiveFloat(name string) (float64, bool) {
	v, ok := r.Float(name)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// String returns the named column as a string, "" and false when absent or
// not textual.
func (r Row) String(name string) (string, bool) {
	i, ok := r.index[name]
	if !ok || i >= len(r.values) {
		return "", false
	}
	s, ok := r.values[i].(string)
	return s, ok
}
