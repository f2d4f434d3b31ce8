package rowstore

import (
	"encoding/csv"
	"io"
)

// PasswordColumn is never exported.
const PasswordColumn = "password"

// WriteCSV renders a grid as CSV, header first, dropping the password
// column. Empty grids produce no output.
func WriteCSV(w io.Writer, values [][]any) error {
	if len(values) == 0 {
		return nil
	}
	headers := Headers(values)
	keep := make([]int, 0, len(headers))
	for i, h := range headers {
		if h != PasswordColumn {
			keep = append(keep, i)
		}
	}

	cw := csv.NewWriter(w)
	for _, row := range values {
		line := make([]string, len(keep))
		for j, i := range keep {
			line[j] = Text(Cell(row, i))
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
