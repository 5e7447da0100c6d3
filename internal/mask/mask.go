// Package mask provides the binary line masks used for cross-correlation.
//
// Exactly four masks are supported, one per spectral-type template: G2, K0,
// K5 and M2. Each mask is a table of rest-frame line centres with weights,
// embedded in the binary, parsed once on first use and shared read-only by
// all pipeline runs.
package mask

import (
	"bufio"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed masks/*.mas
var maskFS embed.FS

// Supported mask identifiers, in the order exposed to the CLI.
var supported = []string{"G2", "K0", "K5", "M2"}

// Line is one entry of a binary mask: a rest-frame line centre in Å and the
// correlation weight of that line.
type Line struct {
	Center float64
	Weight float64
}

// Mask is an immutable binary line mask.
type Mask struct {
	ID    string
	Lines []Line
}

// Span returns the wavelength range covered by the mask's lines.
func (m *Mask) Span() (lo, hi float64) {
	return m.Lines[0].Center, m.Lines[len(m.Lines)-1].Center
}

// UnknownMaskError reports a mask identifier outside the supported set. It
// is raised before any numeric work begins.
type UnknownMaskError struct {
	ID string
}

func (e UnknownMaskError) Error() string {
	return fmt.Sprintf("unknown mask %q: supported masks are %s", e.ID, strings.Join(supported, ", "))
}

// IDs returns the supported mask identifiers.
func IDs() []string {
	out := make([]string, len(supported))
	copy(out, supported)
	return out
}

var (
	cacheMu sync.Mutex
	cache   = map[string]*Mask{}
)

// Load returns the mask for the given identifier, parsing the embedded table
// on first use. Unsupported identifiers fail fast with UnknownMaskError.
func Load(id string) (*Mask, error) {
	ok := false
	for _, s := range supported {
		if id == s {
			ok = true
			break
		}
	}
	if !ok {
		return nil, UnknownMaskError{ID: id}
	}

	cacheMu.Lock()
	defer cacheMu.Unlock()
	if m, hit := cache[id]; hit {
		return m, nil
	}

	m, err := parse(id)
	if err != nil {
		return nil, err
	}
	cache[id] = m
	return m, nil
}

func parse(id string) (*Mask, error) {
	f, err := maskFS.Open("masks/" + id + ".mas")
	if err != nil {
		return nil, fmt.Errorf("open mask table %s: %w", id, err)
	}
	defer f.Close()

	m := &Mask{ID: id}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("mask %s line %d: expected 2 columns, got %d", id, lineNo, len(fields))
		}
		center, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("mask %s line %d: bad centre %q: %w", id, lineNo, fields[0], err)
		}
		weight, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("mask %s line %d: bad weight %q: %w", id, lineNo, fields[1], err)
		}
		if weight <= 0 {
			return nil, fmt.Errorf("mask %s line %d: weight must be positive, got %g", id, lineNo, weight)
		}
		m.Lines = append(m.Lines, Line{Center: center, Weight: weight})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read mask table %s: %w", id, err)
	}
	if len(m.Lines) == 0 {
		return nil, fmt.Errorf("mask table %s contains no lines", id)
	}

	sort.Slice(m.Lines, func(i, j int) bool { return m.Lines[i].Center < m.Lines[j].Center })
	return m, nil
}
