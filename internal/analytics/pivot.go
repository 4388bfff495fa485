package analytics

import (
	"math"
	"sort"
	"strconv"
)

// Aggregation names accepted by PivotOptions.Agg.
const (
	AggCount = "count"
	AggSum   = "sum"
	AggMean  = "mean"
	AggMax   = "max"
	AggMin   = "min"
)

// PivotOptions selects one dimension per axis plus the aggregation. Invalid
// selections degrade to defaults rather than erroring, so a table is always
// produced.
type PivotOptions struct {
	TimeDim     string `json:"time_dim"`     // date, yearMonth, year, quarter, month, week, hour
	GeoDim      string `json:"geo_dim"`      // region, continent, geoGrid
	TypeDim     string `json:"type_dim"`     // type, source
	SeverityDim string `json:"severity_dim"` // severity
	Agg         string `json:"agg"`          // count, sum, mean, max, min
	ValueField  string `json:"value_field"`  // id, magnitude, populationExposed, confidence, severityLevel
}

var timeDimAccessors = map[string]func(*Record) string{
	"date":      func(r *Record) string { return r.Date },
	"yearMonth": func(r *Record) string { return r.YearMonth },
	"year":      func(r *Record) string { return strconv.Itoa(r.Year) },
	"quarter":   func(r *Record) string { return strconv.Itoa(r.Quarter) },
	"month":     func(r *Record) string { return strconv.Itoa(r.Month) },
	"week":      func(r *Record) string { return strconv.Itoa(r.Week) },
	"hour":      func(r *Record) string { return strconv.Itoa(r.Hour) },
}

var geoDimAccessors = map[string]func(*Record) string{
	"region":    func(r *Record) string { return r.Region },
	"continent": func(r *Record) string { return r.Continent },
	"geoGrid":   func(r *Record) string { return r.GeoGrid },
}

var typeDimAccessors = map[string]func(*Record) string{
	"type":   func(r *Record) string { return r.Type },
	"source": func(r *Record) string { return r.Source },
}

var severityDimAccessors = map[string]func(*Record) string{
	"severity": func(r *Record) string { return r.Severity },
}

var valueFieldAccessors = map[string]func(*Record) float64{
	"magnitude":         func(r *Record) float64 { return r.Magnitude },
	"populationExposed": func(r *Record) float64 { return r.PopulationExposed },
	"confidence":        func(r *Record) float64 { return r.Confidence },
	"severityLevel":     func(r *Record) float64 { return r.SeverityLevel },
}

// normalize resolves every option to a valid selection.
func (o PivotOptions) normalize() PivotOptions {
	if _, ok := timeDimAccessors[o.TimeDim]; !ok {
		o.TimeDim = "month"
	}
	if _, ok := geoDimAccessors[o.GeoDim]; !ok {
		o.GeoDim = "region"
	}
	if _, ok := typeDimAccessors[o.TypeDim]; !ok {
		o.TypeDim = "type"
	}
	if _, ok := severityDimAccessors[o.SeverityDim]; !ok {
		o.SeverityDim = "severity"
	}
	switch o.Agg {
	case AggCount, AggSum, AggMean, AggMax, AggMin:
	default:
		o.Agg = AggCount
	}
	if _, ok := valueFieldAccessors[o.ValueField]; !ok {
		o.ValueField = "id"
	}
	// Only counting makes sense over the identifier column.
	if o.ValueField == "id" {
		o.Agg = AggCount
	}
	return o
}

// RowKey is a (time, geo) row coordinate.
type RowKey struct {
	Time string `json:"time"`
	Geo  string `json:"geo"`
}

// ColKey is a (type, severity) column coordinate.
type ColKey struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
}

// Table is a dense pivot result: one value per (row, col) pair, zero-filled
// where no record matched. Rows and Cols are sorted lexicographically.
type Table struct {
	Options PivotOptions `json:"options"`
	Rows    []RowKey     `json:"rows"`
	Cols    []ColKey     `json:"cols"`
	Values  [][]float64  `json:"values"`
}

type cellAgg struct {
	count    int
	sum      float64
	min, max float64
}

// Pivot builds a dense 4-D cross-tabulation of the dataset. The options are
// normalized first, so the returned Table.Options reports what was actually
// used.
func Pivot(records []Record, opts PivotOptions) Table {
	opts = opts.normalize()

	timeOf := timeDimAccessors[opts.TimeDim]
	geoOf := geoDimAccessors[opts.GeoDim]
	typeOf := typeDimAccessors[opts.TypeDim]
	sevOf := severityDimAccessors[opts.SeverityDim]
	valueOf := valueFieldAccessors[opts.ValueField]

	cells := make(map[RowKey]map[ColKey]*cellAgg)
	rowSet := make(map[RowKey]bool)
	colSet := make(map[ColKey]bool)

	for i := range records {
		r := &records[i]
		row := RowKey{Time: timeOf(r), Geo: geoOf(r)}
		col := ColKey{Type: typeOf(r), Severity: sevOf(r)}
		rowSet[row] = true
		colSet[col] = true

		if cells[row] == nil {
			cells[row] = make(map[ColKey]*cellAgg)
		}
		cell := cells[row][col]
		if cell == nil {
			cell = &cellAgg{min: math.Inf(1), max: math.Inf(-1)}
			cells[row][col] = cell
		}

		cell.count++
		if valueOf != nil {
			v := valueOf(r)
			cell.sum += v
			cell.min = math.Min(cell.min, v)
			cell.max = math.Max(cell.max, v)
		}
	}

	table := Table{
		Options: opts,
		Rows:    sortedRows(rowSet),
		Cols:    sortedCols(colSet),
	}

	table.Values = make([][]float64, len(table.Rows))
	for i, row := range table.Rows {
		table.Values[i] = make([]float64, len(table.Cols))
		for j, col := range table.Cols {
			cell := cells[row][col]
			if cell == nil {
				continue
			}
			switch opts.Agg {
			case AggCount:
				table.Values[i][j] = float64(cell.count)
			case AggSum:
				table.Values[i][j] = finite(cell.sum)
			case AggMean:
				table.Values[i][j] = finite(cell.sum / float64(cell.count))
			case AggMax:
				table.Values[i][j] = finite(cell.max)
			case AggMin:
				table.Values[i][j] = finite(cell.min)
			}
		}
	}

	return table
}

func sortedRows(set map[RowKey]bool) []RowKey {
	rows := make([]RowKey, 0, len(set))
	for row := range set {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Time != rows[j].Time {
			return rows[i].Time < rows[j].Time
		}
		return rows[i].Geo < rows[j].Geo
	})
	return rows
}

func sortedCols(set map[ColKey]bool) []ColKey {
	cols := make([]ColKey, 0, len(set))
	for col := range set {
		cols = append(cols, col)
	}
	sort.Slice(cols, func(i, j int) bool {
		if cols[i].Type != cols[j].Type {
			return cols[i].Type < cols[j].Type
		}
		return cols[i].Severity < cols[j].Severity
	})
	return cols
}

// SliceTime returns the sub-table whose rows match the given time value. A
// value absent from the table yields an empty table with the same columns.
func (t Table) SliceTime(value string) Table {
	return t.sliceRows(func(r RowKey) bool { return r.Time == value })
}

// SliceGeo returns the sub-table whose rows match the given geo value.
func (t Table) SliceGeo(value string) Table {
	return t.sliceRows(func(r RowKey) bool { return r.Geo == value })
}

// SliceType returns the sub-table whose columns match the given type value.
func (t Table) SliceType(value string) Table {
	return t.sliceCols(func(c ColKey) bool { return c.Type == value })
}

// SliceSeverity returns the sub-table whose columns match the given severity
// value.
func (t Table) SliceSeverity(value string) Table {
	return t.sliceCols(func(c ColKey) bool { return c.Severity == value })
}

func (t Table) sliceRows(keep func(RowKey) bool) Table {
	out := Table{Options: t.Options, Rows: []RowKey{}, Cols: t.Cols, Values: [][]float64{}}
	for i, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
			out.Values = append(out.Values, t.Values[i])
		}
	}
	return out
}

func (t Table) sliceCols(keep func(ColKey) bool) Table {
	out := Table{Options: t.Options, Rows: t.Rows, Cols: []ColKey{}, Values: make([][]float64, len(t.Rows))}
	var indices []int
	for j, col := range t.Cols {
		if keep(col) {
			out.Cols = append(out.Cols, col)
			indices = append(indices, j)
		}
	}
	for i := range t.Values {
		row := make([]float64, 0, len(indices))
		for _, j := range indices {
			row = append(row, t.Values[i][j])
		}
		out.Values[i] = row
	}
	return out
}

const keySeparator = "|"

// ToMap flattens the table into nested maps keyed "time|geo" and
// "type|severity".
func (t Table) ToMap() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(t.Rows))
	for i, row := range t.Rows {
		inner := make(map[string]float64, len(t.Cols))
		for j, col := range t.Cols {
			inner[col.Type+keySeparator+col.Severity] = t.Values[i][j]
		}
		out[row.Time+keySeparator+row.Geo] = inner
	}
	return out
}
