// Package report renders an HTML dashboard of a target's activity time
// series using go-echarts, one chart per measured quantity against BJD.
package report

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/stellar-data/activity.report/internal/store"
)

// series is one chart worth of points: a quantity against BJD.
type series struct {
	title string
	unit  string
	value func(store.ActivityRecord) (v, e float64, ok bool)
}

func seriesSet() []series {
	return []series{
		{"Radial velocity", "km/s", func(r store.ActivityRecord) (float64, float64, bool) {
			return r.RV, r.RVErr, true
		}},
		{"Bisector span", "km/s", func(r store.ActivityRecord) (float64, float64, bool) {
			return r.BIS, 0, true
		}},
		{"CCF FWHM", "km/s", func(r store.ActivityRecord) (float64, float64, bool) {
			return r.FWHM, 0, true
		}},
		{"S index", "", nullable(func(r store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64) {
			return r.S, r.SErr
		})},
		{"H-alpha index", "", nullable(func(r store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64) {
			return r.Halpha, r.HalphaErr
		})},
		{"He I D3 index", "", nullable(func(r store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64) {
			return r.HeI, r.HeIErr
		})},
		{"Na I D1 index", "", nullable(func(r store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64) {
			return r.NaID1, r.NaID1Err
		})},
		{"Na I D2 index", "", nullable(func(r store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64) {
			return r.NaID2, r.NaID2Err
		})},
	}
}

func nullable(get func(store.ActivityRecord) (sql.NullFloat64, sql.NullFloat64)) func(store.ActivityRecord) (float64, float64, bool) {
	return func(r store.ActivityRecord) (float64, float64, bool) {
		v, e := get(r)
		if !v.Valid {
			return 0, 0, false
		}
		return v.Float64, e.Float64, true
	}
}

// WriteReport renders one HTML page of activity time series for a target.
// Records with a NULL value for a quantity are skipped on that chart only.
func WriteReport(path, target string, records []store.ActivityRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no records for target %s", target)
	}

	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Activity report: %s", target)

	for _, s := range seriesSet() {
		data := make([]opts.ScatterData, 0, len(records))
		for _, rec := range records {
			v, e, ok := s.value(rec)
			if !ok {
				continue
			}
			data = append(data, opts.ScatterData{Value: []interface{}{rec.BJD, v, e}})
		}
		if len(data) == 0 {
			continue
		}

		yName := s.title
		if s.unit != "" {
			yName = fmt.Sprintf("%s (%s)", s.title, s.unit)
		}
		scatter := charts.NewScatter()
		scatter.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{
				Title:    s.title,
				Subtitle: fmt.Sprintf("target=%s points=%d", target, len(data)),
			}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{Name: "BJD", Scale: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Name: yName, Scale: opts.Bool(true)}),
		)
		scatter.AddSeries(target, data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))
		page.AddCharts(scatter)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
