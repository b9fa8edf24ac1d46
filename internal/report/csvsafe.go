package report

// formulaPrefixes are leading characters a spreadsheet may evaluate.
const formulaPrefixes = "=+-@|%\t\r\n"

// EscapeCell prefixes a quote to text cells that a spreadsheet could read
// as a formula. Modifier lines such as "+12 to Strength" are affected too.
func EscapeCell(value string) string {
	if value == "" {
		return value
	}
	for i := 0; i < len(formulaPrefixes); i++ {
		if value[0] == formulaPrefixes[i] {
			return "'" + value
		}
	}
	return value
}

// EscapeRow escapes every cell of row into a new slice.
func EscapeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = EscapeCell(cell)
	}
	return out
}
