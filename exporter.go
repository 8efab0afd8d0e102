package dcsam

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Exporter defines an export interface for joint estimates.
type Exporter interface {
	Write(Values, DiscreteValues) error
	Close() error
}

// CSVExporter writes joint estimate snapshots to a CSV file, one row per
// Write call. Columns are the components of the continuous keys followed by
// the discrete keys, both in ascending key order. Keys absent from a snapshot
// produce empty cells, so the column layout stays stable across rows.
type CSVExporter struct {
	delimiter      string
	continuousKeys []Key
	continuousDims []int
	discreteKeys   []Key
	hdlr           *os.File
}

// NewCSVExporter initializes a new CSV export. The key lists and per-key
// dimensions fix the column layout for the lifetime of the file.
func NewCSVExporter(continuousKeys []Key, continuousDims []int, discreteKeys []Key, filepath, filename string) (e *CSVExporter, err error) {
	if len(continuousKeys) != len(continuousDims) {
		return nil, fmt.Errorf("got %d continuous keys but %d dimensions", len(continuousKeys), len(continuousDims))
	}
	f, err := os.Create(fmt.Sprintf("%s/%s", filepath, filename))
	if err != nil {
		return
	}
	delimiter := ","
	var hdr []string
	for i, k := range continuousKeys {
		for j := 0; j < continuousDims[i]; j++ {
			hdr = append(hdr, fmt.Sprintf("%s[%d]", k, j))
		}
	}
	for _, k := range discreteKeys {
		hdr = append(hdr, k.String())
	}
	f.WriteString(fmt.Sprintf("# Creation date (UTC): %s\n%s\n", time.Now(), strings.Join(hdr, delimiter)))
	e = &CSVExporter{delimiter, continuousKeys, continuousDims, discreteKeys, f}
	return
}

// Write writes one snapshot of the joint estimate to the CSV file.
func (e CSVExporter) Write(continuousVals Values, discreteVals DiscreteValues) error {
	var vals []string
	for i, k := range e.continuousKeys {
		if !continuousVals.Exists(k) {
			for j := 0; j < e.continuousDims[i]; j++ {
				vals = append(vals, "")
			}
			continue
		}
		v := continuousVals.At(k)
		if v.Len() != e.continuousDims[i] {
			return fmt.Errorf("%s%s(%dx1) column layout(%dx1)", dimErrMsg, k, v.Len(), e.continuousDims[i])
		}
		for j := 0; j < v.Len(); j++ {
			vals = append(vals, fmt.Sprintf("%f", v.At(j, 0)))
		}
	}
	for _, k := range e.discreteKeys {
		if !discreteVals.Exists(k) {
			vals = append(vals, "")
			continue
		}
		vals = append(vals, fmt.Sprintf("%d", discreteVals.At(k)))
	}
	_, err := e.hdlr.WriteString(strings.Join(vals, e.delimiter) + "\n")
	return err
}

// WriteRawLn writes a raw line to the CSV file.
func (e CSVExporter) WriteRawLn(s string) error {
	_, err := e.hdlr.WriteString(s + "\n")
	return err
}

// Close closes the file.
func (e CSVExporter) Close() (err error) {
	err = e.WriteRawLn(fmt.Sprintf("# Closing date (UTC): %s", time.Now().UTC()))
	if err != nil {
		return
	}
	return e.hdlr.Close()
}
