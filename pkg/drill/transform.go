package drill

import (
	"fmt"
	"sort"
	"strings"

	"datachat-be/pkg/store"
)

// underlyingRecords returns the record set a transform operates on.
// Drilldowns always work against the original cached records, not a
// previously transformed view.
func underlyingRecords(entry *store.DrilldownEntry) []store.Record {
	switch {
	case entry.Aggregation != nil:
		return entry.Aggregation.Records
	case entry.Records != nil:
		return entry.Records.Records
	}
	return nil
}

// Regroup re-aggregates the cached records by a new field
func Regroup(entry *store.DrilldownEntry, field string) (string, bool) {
	records := underlyingRecords(entry)
	if len(records) == 0 || field == "" {
		return "", false
	}

	groups := aggregateBy(records, field)

	var b strings.Builder
	fmt.Fprintf(&b, "Here is the previous result regrouped by %s (%d records):\n\n", field, len(records))
	writeGroupTable(&b, field, groups)
	return b.String(), true
}

// Filter narrows the cached records to those matching the term on any
// string field
func Filter(entry *store.DrilldownEntry, term string) (string, bool) {
	records := underlyingRecords(entry)
	if len(records) == 0 || term == "" {
		return "", false
	}

	needle := strings.ToLower(term)
	var matched []store.Record
	for _, rec := range records {
		for _, v := range rec {
			s, isString := v.(string)
			if isString && strings.Contains(strings.ToLower(s), needle) {
				matched = append(matched, rec)
				break
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Filtered the previous result to %q: %d of %d records match.\n\n", term, len(matched), len(records))
	writeRecordList(&b, matched, 20)
	return b.String(), true
}

// Expand lists the detail rows behind one group of the cached aggregation
func Expand(entry *store.DrilldownEntry, key string) (string, bool) {
	records := underlyingRecords(entry)
	if len(records) == 0 || key == "" {
		return "", false
	}
	if entry.Aggregation == nil || len(entry.Aggregation.GroupBy) == 0 {
		return "", false
	}

	field := entry.Aggregation.GroupBy[0]
	needle := strings.ToLower(key)
	var matched []store.Record
	for _, rec := range records {
		if v, ok := rec[field].(string); ok && strings.ToLower(v) == needle {
			matched = append(matched, rec)
		}
	}
	if len(matched) == 0 {
		return "", false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Detail for %s = %q (%d records):\n\n", field, key, len(matched))
	writeRecordList(&b, matched, 50)
	return b.String(), true
}

// Export renders the cached result as a CSV-style block
func Export(entry *store.DrilldownEntry) (string, bool) {
	records := underlyingRecords(entry)
	if len(records) == 0 {
		return "", false
	}

	cols := columnsOf(records)

	var b strings.Builder
	b.WriteString("Export of the previous result:\n\n```csv\n")
	b.WriteString(strings.Join(cols, ","))
	b.WriteString("\n")
	for _, rec := range records {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = csvCell(rec[col])
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	b.WriteString("```\n")
	return b.String(), true
}

// aggregateBy groups records on one field, counting and summing every
// numeric column
func aggregateBy(records []store.Record, field string) []store.Group {
	byKey := make(map[string]*store.Group)
	var order []string

	for _, rec := range records {
		key := "(none)"
		if v, ok := rec[field].(string); ok && v != "" {
			key = v
		}

		g, exists := byKey[key]
		if !exists {
			g = &store.Group{
				Key:  map[string]string{field: key},
				Sums: make(map[string]float64),
			}
			byKey[key] = g
			order = append(order, key)
		}
		g.Count++
		for col, v := range rec {
			if n, isNum := asFloat(v); isNum {
				g.Sums[col] += n
			}
		}
	}

	sort.Strings(order)
	groups := make([]store.Group, 0, len(order))
	for _, key := range order {
		groups = append(groups, *byKey[key])
	}
	return groups
}

func writeGroupTable(b *strings.Builder, field string, groups []store.Group) {
	for _, g := range groups {
		fmt.Fprintf(b, "- %s: %d", g.Key[field], g.Count)
		sums := sortedSumCols(g.Sums)
		for _, col := range sums {
			fmt.Fprintf(b, ", %s=%.2f", col, g.Sums[col])
		}
		b.WriteString("\n")
	}
}

func writeRecordList(b *strings.Builder, records []store.Record, limit int) {
	for i, rec := range records {
		if i >= limit {
			fmt.Fprintf(b, "... and %d more\n", len(records)-limit)
			break
		}
		name := recordLabel(rec)
		fmt.Fprintf(b, "- %s\n", name)
	}
}

func recordLabel(rec store.Record) string {
	for _, candidate := range []string{"name", "title", "id"} {
		if v, ok := rec[candidate].(string); ok && v != "" {
			return v
		}
	}
	return fmt.Sprintf("%v", rec)
}

func columnsOf(records []store.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, rec := range records {
		for col := range rec {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	sort.Strings(cols)
	return cols
}

func sortedSumCols(sums map[string]float64) []string {
	var cols []string
	for col := range sums {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func csvCell(v interface{}) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	if strings.ContainsAny(s, ",\"\n") {
		s = `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
