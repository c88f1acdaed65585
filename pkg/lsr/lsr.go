// Package lsr implements the LSR pipe-delimited tabular mini-language used to
// exchange world-state tables with the model.
//
// Two kinds of blocks share one line grammar:
//
//	#<id> <display name>|<cell>|<cell>|...
//
// A definition block describes table schemas (cells are "index:column name"),
// a runtime block carries row data (cells are "index:value"). Lines that do
// not match the grammar are ignored, never an error: the model's output is
// only semi-structured and the codec must survive prose interleaved with
// table lines.
package lsr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Placeholder is the literal written into any cell whose value is unknown.
// Kept verbatim from the table preset the models are prompted with.
const Placeholder = "Chưa biết"

// TableDefinition is the static schema of one LSR table, parsed once from
// configuration.
type TableDefinition struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// Row maps a column index (as a string) to a cell value.
type Row map[string]string

// Tables is the runtime world-state: table id to its rows, in encounter order.
type Tables map[string][]Row

// tableLineRegex matches one LSR line: marker, table id, display name
// (anything up to the first pipe), and the raw cell list.
var tableLineRegex = regexp.MustCompile(`^#(\d+)\s+([^|]+)\|(.*)$`)

// ParseDefinitions extracts table schemas from a static definition block.
// The column name is the suffix after the first ':' when present, otherwise
// the raw token.
func ParseDefinitions(block string) []TableDefinition {
	var defs []TableDefinition

	for _, line := range strings.Split(block, "\n") {
		m := tableLineRegex.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}

		var columns []string
		for _, token := range strings.Split(m[3], "|") {
			if _, name, ok := strings.Cut(token, ":"); ok {
				columns = append(columns, strings.TrimSpace(name))
			} else {
				columns = append(columns, strings.TrimSpace(token))
			}
		}

		defs = append(defs, TableDefinition{
			ID:      m[1],
			Name:    strings.TrimSpace(m[2]),
			Columns: columns,
		})
	}

	return defs
}

// ParseRuntime extracts row data from a runtime block. Repeated table ids
// append additional rows in encounter order. Cells without a ':' separator
// carry no column index and are dropped.
func ParseRuntime(raw string) Tables {
	result := Tables{}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}

		m := tableLineRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		row := Row{}
		for _, cell := range strings.Split(m[3], "|") {
			// Split on the first ':' only; values may themselves contain ':'.
			idx, val, ok := strings.Cut(cell, ":")
			if !ok {
				continue
			}
			row[strings.TrimSpace(idx)] = strings.TrimSpace(val)
		}

		result[m[1]] = append(result[m[1]], row)
	}

	return result
}

// Serialize renders runtime tables back into LSR text form. Display names are
// resolved from defs; tables without a definition fall back to "Bảng <id>".
// Output is ordered by numeric table id, rows in stored order, cells by
// numeric column index, so serialization is deterministic and round-trips
// through ParseRuntime.
func Serialize(tables Tables, defs []TableDefinition) string {
	names := make(map[string]string, len(defs))
	for _, d := range defs {
		names[d.ID] = d.Name
	}

	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})

	var sb strings.Builder
	for _, id := range ids {
		name, ok := names[id]
		if !ok {
			name = fmt.Sprintf("Bảng %s", id)
		}

		for _, row := range tables[id] {
			cols := make([]int, 0, len(row))
			for idx := range row {
				n, err := strconv.Atoi(idx)
				if err != nil {
					continue
				}
				cols = append(cols, n)
			}
			sort.Ints(cols)

			sb.WriteString(fmt.Sprintf("#%s %s", id, name))
			for _, n := range cols {
				idx := strconv.Itoa(n)
				sb.WriteString(fmt.Sprintf("|%s:%s", idx, row[idx]))
			}
			sb.WriteString("\n")
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Clone returns a deep copy of the tables map. Merge operates on copies so
// callers can keep the previous snapshot untouched.
func (t Tables) Clone() Tables {
	out := make(Tables, len(t))
	for id, rows := range t {
		copied := make([]Row, len(rows))
		for i, row := range rows {
			r := make(Row, len(row))
			for k, v := range row {
				r[k] = v
			}
			copied[i] = r
		}
		out[id] = copied
	}
	return out
}
