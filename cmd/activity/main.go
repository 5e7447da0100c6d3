// Command activity derives radial velocities and chromospheric activity
// indices from extracted echelle spectra. It processes a single order table
// or a directory of them, prints a per-observation summary, and optionally
// persists results, merged spectra, plots and an HTML report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stellar-data/activity.report/internal/config"
	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/mask"
	"github.com/stellar-data/activity.report/internal/monitoring"
	"github.com/stellar-data/activity.report/internal/pipeline"
	"github.com/stellar-data/activity.report/internal/plotting"
	"github.com/stellar-data/activity.report/internal/report"
	"github.com/stellar-data/activity.report/internal/specio"
	"github.com/stellar-data/activity.report/internal/store"
	"github.com/stellar-data/activity.report/internal/units"
	"github.com/stellar-data/activity.report/internal/version"
)

var (
	file       = flag.String("file", "", "Process a single order table")
	dir        = flag.String("dir", "", "Process every .dat order table in a directory")
	maskID     = flag.String("mask", "", "Correlation mask (G2, K0, K5, M2; default G2)")
	outDir     = flag.String("out", ".", "Directory for activity tables")
	save1D     = flag.String("save-1d", "", "Directory for merged 1-D spectra (omit to skip)")
	dbPath     = flag.String("db", "", "Sqlite database for activity records (omit to skip)")
	plotsDir   = flag.String("plots", "", "Directory for diagnostic PNGs (omit to skip)")
	reportDir  = flag.String("report", "", "Directory for HTML activity reports (omit to skip)")
	workers    = flag.Int("workers", 0, "Concurrent observations (0 = config default)")
	velUnits   = flag.String("units", units.KMS, "Velocity units for printed summaries (kms or ms)")
	configPath = flag.String("config", "", "JSON tuning file")
	verbose    = flag.Bool("verbose", false, "Log pipeline steps")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Printf("activity %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if (*file == "") == (*dir == "") {
		log.Fatal("exactly one of -file or -dir is required")
	}
	if !units.IsValidVelocityUnit(*velUnits) {
		log.Fatalf("invalid units %q (available: %s)", *velUnits, strings.Join(units.ValidVelocityUnits, ", "))
	}
	if !*verbose {
		monitoring.SetLogger(nil)
	}

	opts := pipeline.DefaultOptions()
	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
		tuning.Apply(&opts)
	}
	if *maskID != "" {
		opts.MaskID = *maskID
	}
	if _, err := mask.Load(opts.MaskID); err != nil {
		log.Fatalf("invalid mask: %v (available: %s)", err, strings.Join(mask.IDs(), ", "))
	}
	if *verbose {
		opts.Observer = pipeline.LogObserver{Target: "run"}
	}

	nWorkers := tuning.GetWorkers()
	if *workers > 0 {
		nWorkers = *workers
	}

	paths, err := collectPaths()
	if err != nil {
		log.Fatalf("failed to collect inputs: %v", err)
	}
	if len(paths) == 0 {
		log.Fatal("no order tables to process")
	}

	inputs := make([]pipeline.Input, 0, len(paths))
	for _, p := range paths {
		in, err := specio.ReadOrderTable(p)
		if err != nil {
			log.Fatalf("failed to read %s: %v", p, err)
		}
		if in.Target == "" {
			in.Target = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		inputs = append(inputs, in)
	}

	items := pipeline.RunBatch(context.Background(), inputs, opts, nWorkers)

	var db *store.DB
	if *dbPath != "" {
		db, err = store.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()
	}

	byTarget := map[string][]*pipeline.Result{}
	failures := 0
	for i, item := range items {
		if item.Err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAILED %s (%s): %v\n", item.Input.Target, paths[i], item.Err)
			continue
		}
		res := item.Result
		printSummary(res)
		byTarget[res.Target] = append(byTarget[res.Target], res)

		if err := saveArtifacts(db, paths[i], res); err != nil {
			log.Fatalf("failed to save outputs for %s: %v", res.Target, err)
		}
	}

	for target, results := range byTarget {
		sort.Slice(results, func(i, j int) bool { return results[i].BJD < results[j].BJD })
		table := filepath.Join(*outDir, target+"_activities.dat")
		if err := specio.WriteActivityTable(table, target, results); err != nil {
			log.Fatalf("failed to write activity table: %v", err)
		}
		if *reportDir != "" {
			if err := writeReport(db, target, results); err != nil {
				log.Fatalf("failed to write report for %s: %v", target, err)
			}
		}
	}

	if failures > 0 {
		log.Fatalf("%d of %d observations failed", failures, len(items))
	}
}

func collectPaths() ([]string, error) {
	if *file != "" {
		return []string{*file}, nil
	}
	entries, err := os.ReadDir(*dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".dat" {
			continue
		}
		paths = append(paths, filepath.Join(*dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func printSummary(res *pipeline.Result) {
	conv := func(v float64) float64 { return units.ConvertVelocity(v, *velUnits) }
	fmt.Printf("%s BJD=%.5f RV=%.4f±%.4f %s BIS=%.4f FWHM=%.3f contrast=%.3f S/N=%.0f\n",
		res.Target, res.BJD, conv(res.RV), conv(res.RVErr), units.VelocityLabel(*velUnits),
		conv(res.BIS), conv(res.FWHM), res.Contrast, res.Merged.SN)
	for _, name := range indices.Names() {
		if v, ok := res.Index(name); ok {
			fmt.Printf("  %-8s %.5f ± %.5f\n", name, v.Value, v.Err)
		} else {
			fmt.Printf("  %-8s skipped: %v\n", name, res.Indices.Failed[name])
		}
	}
}

func saveArtifacts(db *store.DB, inputPath string, res *pipeline.Result) error {
	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))

	if *save1D != "" {
		if err := os.MkdirAll(*save1D, 0755); err != nil {
			return err
		}
		path := filepath.Join(*save1D, stem+"_merged.dat")
		if err := specio.WriteMergedSpectrum(path, res.Merged); err != nil {
			return err
		}
	}
	if *plotsDir != "" {
		if err := os.MkdirAll(*plotsDir, 0755); err != nil {
			return err
		}
		profilePath := filepath.Join(*plotsDir, stem+"_ccf.png")
		if err := plotting.SaveProfilePlot(profilePath, res.Profile, res.Fit); err != nil {
			return err
		}
		spectrumPath := filepath.Join(*plotsDir, stem+"_spectrum.png")
		if err := plotting.SaveSpectrumPlot(spectrumPath, res.Merged); err != nil {
			return err
		}
	}
	if db != nil {
		rec := store.FromResult(res.Target, res.Instrument, res)
		if err := db.RecordActivity(rec); err != nil {
			return err
		}
	}
	return nil
}

// writeReport prefers the full stored history for the target; without a
// database it falls back to this run's results.
func writeReport(db *store.DB, target string, results []*pipeline.Result) error {
	if err := os.MkdirAll(*reportDir, 0755); err != nil {
		return err
	}

	var records []store.ActivityRecord
	if db != nil {
		var err error
		records, err = db.ActivitiesForTarget(target)
		if err != nil {
			return err
		}
	} else {
		for _, res := range results {
			records = append(records, store.FromResult(target, res.Instrument, res))
		}
	}
	return report.WriteReport(filepath.Join(*reportDir, target+".html"), target, records)
}
