package specio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/pipeline"
	"github.com/stellar-data/activity.report/internal/spectrum"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestReadOrderTable(t *testing.T) {
	path := writeTemp(t, "obs.dat", `# target HD10700
# instrument FEROS
# bjd 2458849.5123
# anything after a plain comment is ignored
1 5005.00 0.97 0.005
1 5005.02 0.96 0.005
0 5000.00 1.01 0.005
0 5000.02 0.99 0.005
0 5000.04 1.00 0.005
`)

	in, err := ReadOrderTable(path)
	if err != nil {
		t.Fatalf("ReadOrderTable: %v", err)
	}

	if in.Target != "HD10700" || in.Instrument != "FEROS" {
		t.Errorf("metadata = %q/%q, want HD10700/FEROS", in.Target, in.Instrument)
	}
	if in.BJD != 2458849.5123 {
		t.Errorf("BJD = %f, want 2458849.5123", in.BJD)
	}

	want := []spectrum.Order{
		{
			Wavelength: []float64{5000.00, 5000.02, 5000.04},
			Flux:       []float64{1.01, 0.99, 1.00},
			Error:      []float64{0.005, 0.005, 0.005},
		},
		{
			Wavelength: []float64{5005.00, 5005.02},
			Flux:       []float64{0.97, 0.96},
			Error:      []float64{0.005, 0.005},
		},
	}
	if diff := cmp.Diff(want, in.Orders); diff != "" {
		t.Errorf("orders mismatch (-want +got):\n%s", diff)
	}
}

func TestReadOrderTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", "# target X\n"},
		{"wrong column count", "0 5000.0 1.0\n"},
		{"bad wavelength", "0 abc 1.0 0.01\n"},
		{"bad order index", "x 5000.0 1.0 0.01\n"},
		{"descending wavelengths", "0 5000.02 1.0 0.01\n0 5000.00 1.0 0.01\n"},
		{"bad bjd header", "# bjd notanumber\n0 5000.0 1.0 0.01\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.dat", tt.content)
			if _, err := ReadOrderTable(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestReadOrderTableMissingFile(t *testing.T) {
	if _, err := ReadOrderTable("/nonexistent/obs.dat"); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestWriteMergedSpectrum(t *testing.T) {
	ms := &spectrum.MergedSpectrum{
		Wavelength: []float64{5000.0, 5000.5, 5001.0},
		Flux:       []float64{1.0, 0.9, 1.1},
		Error:      []float64{0.01, 0.02, 0.01},
		SN:         100.0,
	}
	path := filepath.Join(t.TempDir(), "merged.dat")
	if err := WriteMergedSpectrum(path, ms); err != nil {
		t.Fatalf("WriteMergedSpectrum: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 2 headers + 3 samples", len(lines))
	}
	if !strings.HasPrefix(lines[0], "# sn 100.000") {
		t.Errorf("header = %q, want sn header", lines[0])
	}
	if !strings.HasPrefix(lines[2], "5000.000000 ") {
		t.Errorf("first sample = %q", lines[2])
	}
}

func TestActivityRowMarksFailedIndices(t *testing.T) {
	res := &pipeline.Result{
		BJD: 2458849.5, RV: 15.2, RVErr: 0.003,
		BIS: 0.01, FWHM: 7.1, Contrast: 0.45,
		Indices: &indices.Set{
			Values: map[string]indices.Value{
				indices.IndexS:      {Value: 0.17, Err: 0.002},
				indices.IndexHalpha: {Value: 0.31, Err: 0.001},
				indices.IndexNaID1:  {Value: 0.25, Err: 0.004},
				indices.IndexNaID2:  {Value: 0.24, Err: 0.004},
			},
			Failed: map[string]error{indices.IndexHeI: os.ErrInvalid},
		},
	}

	row := ActivityRow(res)
	if len(row) != len(ActivityColumns) {
		t.Fatalf("row has %d values, want %d", len(row), len(ActivityColumns))
	}
	if row[0] != 2458849.5 || row[1] != 15.2 {
		t.Errorf("BJD/RV = %v/%v", row[0], row[1])
	}
	if row[6] != 0.17 || row[7] != 0.002 {
		t.Errorf("S columns = %v/%v", row[6], row[7])
	}
	// HEI and HEI_E carry the missing-value marker.
	if row[10] != MissingValue || row[11] != MissingValue {
		t.Errorf("HEI columns = %v/%v, want %v", row[10], row[11], MissingValue)
	}
}

func TestWriteActivityTable(t *testing.T) {
	res := &pipeline.Result{
		BJD: 2458849.5, RV: 15.2, RVErr: 0.003,
		Indices: &indices.Set{Values: map[string]indices.Value{}},
	}
	path := filepath.Join(t.TempDir(), "activities.dat")
	if err := WriteActivityTable(path, "HD10700", []*pipeline.Result{res}); err != nil {
		t.Fatalf("WriteActivityTable: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want target header + column header + 1 row", len(lines))
	}
	if lines[0] != "# target HD10700" {
		t.Errorf("target header = %q", lines[0])
	}
	if lines[1] != "# "+strings.Join(ActivityColumns, " ") {
		t.Errorf("column header = %q", lines[1])
	}
	if got := len(strings.Fields(lines[2])); got != len(ActivityColumns) {
		t.Errorf("data row has %d columns, want %d", got, len(ActivityColumns))
	}
}
