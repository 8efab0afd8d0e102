package dcsam

import (
	"os"
	"strings"
	"testing"

	"github.com/gonum/matrix/mat64"
)

func TestCSVExporter(t *testing.T) {
	x := Symbol('x', 0)
	d := Symbol('d', 0)
	dir := t.TempDir()
	exp, err := NewCSVExporter([]Key{x}, []int{2}, []Key{d}, dir, "estimates.csv")
	if err != nil {
		t.Fatal(err)
	}
	vals := NewValues()
	vals.Insert(x, mat64.NewVector(2, []float64{1.5, -0.25}))
	if err := exp.Write(vals, DiscreteValues{d: 1}); err != nil {
		t.Fatal(err)
	}
	// A snapshot missing some keys keeps the column layout.
	if err := exp.Write(NewValues(), NewDiscreteValues()); err != nil {
		t.Fatal(err)
	}
	if err := exp.Write(valuesAt(x, 0), nil); err == nil {
		t.Fatal("mis-sized value does not fail")
	}
	if err := exp.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(dir + "/estimates.csv")
	if err != nil {
		t.Fatal(err)
	}
	// The closing comment ends the file with a single newline.
	if raw := string(data); !strings.HasSuffix(raw, "\n") || strings.HasSuffix(raw, "\n\n") {
		t.Fatalf("file does not end with a single newline: %q", raw)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if last := lines[len(lines)-1]; !strings.HasPrefix(last, "# Closing date") {
		t.Fatalf("last line %q is not the closing comment", last)
	}
	if !strings.Contains(lines[1], "x0[0]") || !strings.Contains(lines[1], "d0") {
		t.Fatalf("header %q missing key columns", lines[1])
	}
	if lines[2] != "1.500000,-0.250000,1" {
		t.Fatalf("first row %q", lines[2])
	}
	if lines[3] != ",," {
		t.Fatalf("empty snapshot row %q", lines[3])
	}
}

func TestNewCSVExporterErrors(t *testing.T) {
	if _, err := NewCSVExporter([]Key{Symbol('x', 0)}, []int{1, 2}, nil, t.TempDir(), "bad.csv"); err == nil {
		t.Fatal("key and dimension count mismatch does not fail")
	}
}
