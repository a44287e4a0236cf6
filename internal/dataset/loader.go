package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
)

// missingTokens are the cell values treated as explicit missing markers.
var missingTokens = []string{"", "N/A"}

// Load reads the dataset at path, dispatching on extension. CSV is the
// primary format; XLSX drops from the city portal load through the same
// record path.
func Load(path string) (dataframe.DataFrame, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return LoadXLSX(path)
	}
	return LoadCSV(path)
}

// LoadCSV reads a delimited UTF-8 table with a header row into a string-typed
// frame. Cells matching a missing token become explicit NA markers.
func LoadCSV(path string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(ErrSourceUnavailable, "dataset: open %s: %v", path, err)
	}
	defer f.Close()

	df, err := ReadCSV(f)
	if err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(err, "dataset: read %s", path)
	}

	zap.L().Info("dataset: loaded csv",
		zap.String("path", path),
		zap.Int("rows", df.Nrow()),
		zap.Int("cols", df.Ncol()),
	)
	return df, nil
}

// ReadCSV parses CSV records from r. Inconsistent column counts surface as
// ErrMalformedInput rather than gota's generic load error, so the caller can
// tell a broken file from an unreadable one.
func ReadCSV(r io.Reader) (dataframe.DataFrame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && errors.Is(perr.Err, csv.ErrFieldCount) {
				return dataframe.DataFrame{}, eris.Wrapf(ErrMalformedInput,
					"dataset: row %d has inconsistent column count", perr.Line)
			}
			return dataframe.DataFrame{}, eris.Wrapf(ErrMalformedInput, "dataset: parse csv: %v", err)
		}
		records = append(records, rec)
	}

	return loadRecords(records)
}

// LoadXLSX reads the first sheet of an XLSX workbook. Short rows are padded
// with empty cells (missing); rows wider than the header are malformed.
func LoadXLSX(path string) (dataframe.DataFrame, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(ErrSourceUnavailable, "dataset: open %s: %v", path, err)
	}
	if len(f.Sheets) == 0 {
		return dataframe.DataFrame{}, eris.Wrapf(ErrMalformedInput, "dataset: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	var records [][]string
	width := 0
	for i, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		if i == 0 {
			width = len(cells)
		}
		if len(cells) > width {
			return dataframe.DataFrame{}, eris.Wrapf(ErrMalformedInput,
				"dataset: xlsx row %d wider than header (%d > %d)", i+1, len(cells), width)
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		records = append(records, cells)
	}

	df, err := loadRecords(records)
	if err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(err, "dataset: read %s", path)
	}

	zap.L().Info("dataset: loaded xlsx",
		zap.String("path", path),
		zap.Int("rows", df.Nrow()),
		zap.Int("cols", df.Ncol()),
	)
	return df, nil
}

func loadRecords(records [][]string) (dataframe.DataFrame, error) {
	if len(records) < 1 {
		return dataframe.DataFrame{}, eris.Wrap(ErrMalformedInput, "dataset: no header row")
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(missingTokens),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, eris.Wrapf(ErrMalformedInput, "dataset: load records: %v", df.Err)
	}
	return df, nil
}
