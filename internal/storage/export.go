package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/fabrics/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
}

func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Controls:    make([][]float64, len(result.Controls)),
	}
	data.Steps = len(result.Times)
	data.Metrics = finite(meta.Metrics)

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV writes one row per sample: time, state, then control. Rows
// without a control are padded with zeros.
func ExportCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if len(result.States) == 0 {
		return nil
	}

	header := []string{"time"}
	for i := range result.States[0] {
		header = append(header, fmt.Sprintf("x%d", i))
	}

	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
		for i := 0; i < numControls; i++ {
			header = append(header, fmt.Sprintf("u%d", i))
		}
	}

	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := []string{strconv.FormatFloat(result.Times[i], 'f', 6, 64)}
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}

		if i < len(result.Controls) && len(result.Controls[i]) == numControls {
			for _, val := range result.Controls[i] {
				row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
			}
		} else {
			for j := 0; j < numControls; j++ {
				row = append(row, "0")
			}
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary holds column statistics of a stored trajectory.
type Summary struct {
	Min, Max, Mean, Final float64
}

// Summarize computes statistics of column col over rows.
func Summarize[R ~[]float64](rows []R, col int) (Summary, error) {
	column := make([]float64, 0, len(rows))
	for i, row := range rows {
		if col < 0 || col >= len(row) {
			return Summary{}, errors.Errorf("storage: row %d has no column %d", i, col)
		}
		column = append(column, row[col])
	}
	if len(column) == 0 {
		return Summary{}, nil
	}
	return Summary{
		Min:   floats.Min(column),
		Max:   floats.Max(column),
		Mean:  floats.Sum(column) / float64(len(column)),
		Final: column[len(column)-1],
	}, nil
}
