// Package specio reads and writes the plain-text exchange formats used
// around the pipeline: order tables handed off by the extraction stage,
// merged 1-D spectra, and per-star activity tables.
package specio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/pipeline"
	"github.com/stellar-data/activity.report/internal/spectrum"
)

// MissingValue marks an index column that could not be computed for an
// observation, typically because the spectrum did not cover its bands.
const MissingValue = -999.0

// ReadOrderTable parses an extracted echelle observation from a text file.
//
// The format is one sample per line, "order wavelength flux error", with
// `#`-prefixed header lines carrying metadata:
//
//	# target HD10700
//	# instrument FEROS
//	# bjd 2458849.5123
//	0 3880.00 1.0234 0.0051
//	...
//
// Orders need not be contiguous but samples within an order must be in
// ascending wavelength.
func ReadOrderTable(path string) (pipeline.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("open order table: %w", err)
	}
	defer f.Close()
	in, err := parseOrderTable(f)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func parseOrderTable(r io.Reader) (pipeline.Input, error) {
	var in pipeline.Input
	byOrder := map[int]*spectrum.Order{}
	var orderIDs []int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if err := parseHeader(strings.TrimPrefix(line, "#"), &in); err != nil {
				return pipeline.Input{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 4 {
			return pipeline.Input{}, fmt.Errorf("line %d: want 4 columns (order wavelength flux error), got %d", lineNo, len(fields))
		}
		idx, err := strconv.Atoi(fields[0])
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("line %d: bad order index %q: %w", lineNo, fields[0], err)
		}
		w, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("line %d: bad wavelength %q: %w", lineNo, fields[1], err)
		}
		fl, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("line %d: bad flux %q: %w", lineNo, fields[2], err)
		}
		e, err := strconv.ParseFloat(fields[3], 64)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("line %d: bad error %q: %w", lineNo, fields[3], err)
		}

		o, ok := byOrder[idx]
		if !ok {
			o = &spectrum.Order{}
			byOrder[idx] = o
			orderIDs = append(orderIDs, idx)
		}
		if n := len(o.Wavelength); n > 0 && w <= o.Wavelength[n-1] {
			return pipeline.Input{}, fmt.Errorf("line %d: order %d wavelengths must be ascending", lineNo, idx)
		}
		o.Wavelength = append(o.Wavelength, w)
		o.Flux = append(o.Flux, fl)
		o.Error = append(o.Error, e)
	}
	if err := scanner.Err(); err != nil {
		return pipeline.Input{}, fmt.Errorf("read order table: %w", err)
	}
	if len(orderIDs) == 0 {
		return pipeline.Input{}, fmt.Errorf("order table has no samples")
	}

	sort.Ints(orderIDs)
	for _, id := range orderIDs {
		in.Orders = append(in.Orders, *byOrder[id])
	}
	return in, nil
}

func parseHeader(rest string, in *pipeline.Input) error {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return nil // plain comment, not metadata
	}
	key, value := strings.ToLower(fields[0]), fields[1]
	switch key {
	case "target":
		in.Target = value
	case "instrument":
		in.Instrument = value
	case "bjd":
		bjd, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("bad bjd %q: %w", value, err)
		}
		in.BJD = bjd
	}
	return nil
}

// WriteMergedSpectrum writes a merged 1-D spectrum as a three-column text
// file (wavelength flux error) with the signal-to-noise in the header.
func WriteMergedSpectrum(path string, ms *spectrum.MergedSpectrum) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create spectrum file: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# sn %.3f\n", ms.SN)
	fmt.Fprintf(w, "# wavelength flux error\n")
	for i := range ms.Wavelength {
		fmt.Fprintf(w, "%.6f %.8e %.8e\n", ms.Wavelength[i], ms.Flux[i], ms.Error[i])
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write spectrum file: %w", err)
	}
	return f.Close()
}

// ActivityColumns is the fixed column order of the activity table.
var ActivityColumns = []string{
	"BJD", "RV", "RV_E", "BIS", "FWHM", "CONTRAST",
	"S", "S_E", "HALPHA", "HALPHA_E", "HEI", "HEI_E", "NAID1", "NAID2",
}

// ActivityRow flattens one pipeline result into the fixed column order.
// Indices that failed for the observation are written as MissingValue.
func ActivityRow(res *pipeline.Result) []float64 {
	s, sErr := res.IndexOr(indices.IndexS, MissingValue)
	ha, haErr := res.IndexOr(indices.IndexHalpha, MissingValue)
	hei, heiErr := res.IndexOr(indices.IndexHeI, MissingValue)
	nad1, _ := res.IndexOr(indices.IndexNaID1, MissingValue)
	nad2, _ := res.IndexOr(indices.IndexNaID2, MissingValue)
	return []float64{
		res.BJD, res.RV, res.RVErr, res.BIS, res.FWHM, res.Contrast,
		s, sErr, ha, haErr, hei, heiErr, nad1, nad2,
	}
}

// WriteActivityTable writes one row per successful result, sorted the way
// the results are given (callers sort by BJD when they care).
func WriteActivityTable(path, target string, results []*pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create activity table: %w", err)
	}

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# target %s\n", target)
	fmt.Fprintf(w, "# %s\n", strings.Join(ActivityColumns, " "))
	for _, res := range results {
		row := ActivityRow(res)
		parts := make([]string, len(row))
		for i, v := range row {
			parts[i] = strconv.FormatFloat(v, 'f', 8, 64)
		}
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write activity table: %w", err)
	}
	return f.Close()
}
