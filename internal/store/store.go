// Package store persists activity measurements to a local sqlite database
// so repeated runs over the same target accumulate a time series.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/stellar-data/activity.report/internal/indices"
	"github.com/stellar-data/activity.report/internal/pipeline"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS activities (
			run_id            TEXT PRIMARY KEY,
			target            TEXT NOT NULL,
			instrument        TEXT,
			bjd               DOUBLE NOT NULL,
			rv                DOUBLE,
			rv_e              DOUBLE,
			bis               DOUBLE,
			fwhm              DOUBLE,
			contrast          DOUBLE,
			s                 DOUBLE,
			s_e               DOUBLE,
			halpha            DOUBLE,
			halpha_e          DOUBLE,
			hei               DOUBLE,
			hei_e             DOUBLE,
			naid1             DOUBLE,
			naid1_e           DOUBLE,
			naid2             DOUBLE,
			naid2_e           DOUBLE,
			sn                DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_activities_target_bjd
			ON activities(target, bjd);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// ActivityRecord is one persisted observation. Index fields are nullable:
// an index that could not be computed for the observation stays NULL.
type ActivityRecord struct {
	RunID      string
	Target     string
	Instrument string
	BJD        float64
	RV         float64
	RVErr      float64
	BIS        float64
	FWHM       float64
	Contrast   float64
	S          sql.NullFloat64
	SErr       sql.NullFloat64
	Halpha     sql.NullFloat64
	HalphaErr  sql.NullFloat64
	HeI        sql.NullFloat64
	HeIErr     sql.NullFloat64
	NaID1      sql.NullFloat64
	NaID1Err   sql.NullFloat64
	NaID2      sql.NullFloat64
	NaID2Err   sql.NullFloat64
	SN         float64
}

// FromResult flattens a pipeline result into a record ready to insert.
func FromResult(target, instrument string, res *pipeline.Result) ActivityRecord {
	rec := ActivityRecord{
		RunID:      res.RunID,
		Target:     target,
		Instrument: instrument,
		BJD:        res.BJD,
		RV:         res.RV,
		RVErr:      res.RVErr,
		BIS:        res.BIS,
		FWHM:       res.FWHM,
		Contrast:   res.Contrast,
	}
	if res.Merged != nil {
		rec.SN = res.Merged.SN
	}
	rec.S, rec.SErr = nullIndex(res, indices.IndexS)
	rec.Halpha, rec.HalphaErr = nullIndex(res, indices.IndexHalpha)
	rec.HeI, rec.HeIErr = nullIndex(res, indices.IndexHeI)
	rec.NaID1, rec.NaID1Err = nullIndex(res, indices.IndexNaID1)
	rec.NaID2, rec.NaID2Err = nullIndex(res, indices.IndexNaID2)
	return rec
}

func nullIndex(res *pipeline.Result, name string) (sql.NullFloat64, sql.NullFloat64) {
	v, ok := res.Index(name)
	if !ok {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v.Value, Valid: true},
		sql.NullFloat64{Float64: v.Err, Valid: true}
}

func (db *DB) RecordActivity(rec ActivityRecord) error {
	if rec.RunID == "" {
		return fmt.Errorf("activity record has no run id")
	}
	_, err := db.Exec(`
		INSERT INTO activities (
			run_id, target, instrument, bjd,
			rv, rv_e, bis, fwhm, contrast,
			s, s_e, halpha, halpha_e, hei, hei_e,
			naid1, naid1_e, naid2, naid2_e, sn
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Target, rec.Instrument, rec.BJD,
		rec.RV, rec.RVErr, rec.BIS, rec.FWHM, rec.Contrast,
		rec.S, rec.SErr, rec.Halpha, rec.HalphaErr, rec.HeI, rec.HeIErr,
		rec.NaID1, rec.NaID1Err, rec.NaID2, rec.NaID2Err, rec.SN,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// ActivitiesForTarget returns all stored records for a target ordered by BJD.
func (db *DB) ActivitiesForTarget(target string) ([]ActivityRecord, error) {
	rows, err := db.Query(`
		SELECT run_id, target, instrument, bjd,
			rv, rv_e, bis, fwhm, contrast,
			s, s_e, halpha, halpha_e, hei, hei_e,
			naid1, naid1_e, naid2, naid2_e, sn
		FROM activities WHERE target = ? ORDER BY bjd`, target)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var records []ActivityRecord
	for rows.Next() {
		var rec ActivityRecord
		err := rows.Scan(
			&rec.RunID, &rec.Target, &rec.Instrument, &rec.BJD,
			&rec.RV, &rec.RVErr, &rec.BIS, &rec.FWHM, &rec.Contrast,
			&rec.S, &rec.SErr, &rec.Halpha, &rec.HalphaErr, &rec.HeI, &rec.HeIErr,
			&rec.NaID1, &rec.NaID1Err, &rec.NaID2, &rec.NaID2Err, &rec.SN,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Targets returns the distinct targets present in the store.
func (db *DB) Targets() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT target FROM activities ORDER BY target`)
	if err != nil {
		return nil, fmt.Errorf("failed to query targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, t)
	}
	return targets, rows.Err()
}
