package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const flightsCSV = "\ufeffAirline,Source,Base Fare (BDT),Days Before Departure,Aircraft Type\n" +
	"Biman,DAC,5000.5,10,Boeing 737\n" +
	"NovoAir,CXB,4200,3,\n" +
	"US-Bangla,ZYL,NA,7,ATR 72\n"

func mustRead(t *testing.T, text string, opt Options) *Snapshot {
	t.Helper()
	s, err := ReadCSV(strings.NewReader(text), opt)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return s
}

func TestReadCSV_TypesAndNulls(t *testing.T) {
	t.Parallel()

	s := mustRead(t, flightsCSV, Options{})

	wantNames := []string{"Airline", "Source", "Base Fare (BDT)", "Days Before Departure", "Aircraft Type"}
	if got := s.Names(); !reflect.DeepEqual(got, wantNames) {
		t.Fatalf("Names() = %q, want %q", got, wantNames)
	}
	if s.Nrow() != 3 || s.Ncol() != 5 {
		t.Fatalf("shape = %dx%d, want 3x5", s.Nrow(), s.Ncol())
	}

	types := map[string]Type{
		"Airline":               String,
		"Base Fare (BDT)":       Float,
		"Days Before Departure": Int,
		"Aircraft Type":         String,
	}
	for name, want := range types {
		if got, ok := s.Type(name); !ok || got != want {
			t.Errorf("Type(%q) = %q, want %q", name, got, want)
		}
	}

	fare, _ := s.Column("Base Fare (BDT)")
	if fare.Nulls() != 1 || !fare.IsNull(2) {
		t.Fatalf("fare nulls = %d, IsNull(2) = %v", fare.Nulls(), fare.IsNull(2))
	}
	if v, ok := fare.Float(0); !ok || v != 5000.5 {
		t.Fatalf("Float(0) = %v, %v", v, ok)
	}
	if got := fare.Floats(); !reflect.DeepEqual(got, []float64{5000.5, 4200}) {
		t.Fatalf("Floats() = %v", got)
	}
	if got := fare.Text(1); got != "4200" {
		t.Fatalf("Text(1) = %q, want 4200", got)
	}

	aircraft, _ := s.Column("Aircraft Type")
	if !aircraft.IsNull(1) || aircraft.NonNull() != 2 {
		t.Fatalf("aircraft nulls not detected")
	}
	if !s.RowHasNull(1) || s.RowHasNull(0) {
		t.Fatalf("RowHasNull mismatch")
	}
	if got := s.Row(2); !reflect.DeepEqual(got, []string{"US-Bangla", "ZYL", "", "7", "ATR 72"}) {
		t.Fatalf("Row(2) = %q", got)
	}
}

func TestReadCSV_HeaderOnly(t *testing.T) {
	t.Parallel()

	s := mustRead(t, "Airline,Source\n", Options{})
	if s.Nrow() != 0 || s.Ncol() != 2 {
		t.Fatalf("shape = %dx%d, want 0x2", s.Nrow(), s.Ncol())
	}
	c, ok := s.Column("Source")
	if !ok || c.NonNull() != 0 {
		t.Fatalf("expected an empty Source column")
	}
}

func TestReadCSV_EmptyInput(t *testing.T) {
	t.Parallel()

	if _, err := ReadCSV(strings.NewReader(""), Options{}); err == nil {
		t.Fatalf("expected an error for empty input")
	}
}

func TestReadCSV_RejectsBadRows(t *testing.T) {
	t.Parallel()

	text := "Airline,Fare\n" +
		"Biman,100\n" +
		"Broken\n" +
		"NovoAir,200,extra\n" +
		"Regent,300\n"
	s := mustRead(t, text, Options{})

	if s.Nrow() != 4 {
		t.Fatalf("Nrow = %d, want 4 (rejected rows stay aligned)", s.Nrow())
	}
	rej := s.Rejected()
	if len(rej) != 2 || rej[0].Row != 1 || rej[1].Row != 2 {
		t.Fatalf("Rejected() = %+v", rej)
	}
	if !s.IsRejected(1) || s.IsRejected(3) {
		t.Fatalf("IsRejected mismatch")
	}
	fare, _ := s.Column("Fare")
	if fare.Type() != Int || !fare.IsNull(1) || fare.Text(3) != "300" {
		t.Fatalf("fare column = %s, null(1)=%v, text(3)=%q", fare.Type(), fare.IsNull(1), fare.Text(3))
	}
}

func TestReadCSV_Options(t *testing.T) {
	t.Parallel()

	s := mustRead(t, "Class;Fare\n Economy ;-\nBusiness;900\n", Options{
		Comma:      ';',
		NullValues: []string{"-"},
		TrimSpace:  true,
	})
	class, _ := s.Column("Class")
	if class.Text(0) != "Economy" {
		t.Fatalf("TrimSpace not applied: %q", class.Text(0))
	}
	fare, _ := s.Column("Fare")
	if !fare.IsNull(0) || fare.Type() != Int {
		t.Fatalf("custom null token not applied: type=%s null=%v", fare.Type(), fare.IsNull(0))
	}
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), Options{})
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotFound and os.ErrNotExist, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "flights.csv")
	if err := os.WriteFile(p, []byte(flightsCSV), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := Load(context.Background(), p, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.HasAll("Airline", "Source") || s.Has("airline") {
		t.Fatalf("header names must be kept exactly")
	}
}

func TestFromRecords(t *testing.T) {
	t.Parallel()

	s, err := FromRecords([][]string{
		{"Airline", "Fare"},
		{"Biman", "10.5"},
		{"NovoAir", ""},
	}, Options{})
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	fare, _ := s.Column("Fare")
	if fare.Type() != Float || fare.Nulls() != 1 {
		t.Fatalf("fare type=%s nulls=%d", fare.Type(), fare.Nulls())
	}

	if _, err := FromRecords(nil, Options{}); err == nil {
		t.Fatalf("expected error without header")
	}
	if _, err := FromRecords([][]string{{"a", "b"}, {"1"}}, Options{}); err == nil {
		t.Fatalf("expected error for ragged records")
	}
}

func TestDuplicated(t *testing.T) {
	t.Parallel()

	text := "Airline,Source,Fare\n" +
		"Biman,DAC,100\n" +
		"Biman,DAC,200\n" +
		"Biman,DAC,100\n" +
		"NovoAir,,300\n" +
		"NovoAir,,300\n"
	s := mustRead(t, text, Options{})

	full, err := s.Duplicated()
	if err != nil {
		t.Fatalf("Duplicated: %v", err)
	}
	if want := []bool{false, false, true, false, true}; !reflect.DeepEqual(full, want) {
		t.Fatalf("full-row duplicates = %v, want %v", full, want)
	}

	n, err := s.CountDuplicated("Airline", "Source")
	if err != nil {
		t.Fatalf("CountDuplicated: %v", err)
	}
	if n != 3 {
		t.Fatalf("key duplicates = %d, want 3", n)
	}

	if _, err := s.Duplicated("Nope"); err == nil {
		t.Fatalf("expected error for unknown column")
	}
}

func TestDuplicated_SkipsRejectedRows(t *testing.T) {
	t.Parallel()

	s := mustRead(t, "a,b\nx\ny\n1,2\n", Options{})
	n, err := s.CountDuplicated()
	if err != nil {
		t.Fatalf("CountDuplicated: %v", err)
	}
	if n != 0 {
		t.Fatalf("rejected rows must not count as duplicates, got %d", n)
	}
}

func TestFrameIsACopy(t *testing.T) {
	t.Parallel()

	s := mustRead(t, flightsCSV, Options{})
	df := s.Frame()
	df = df.Drop("Airline")
	if !s.Has("Airline") || df.Ncol() != 4 {
		t.Fatalf("Frame copy leaked into snapshot")
	}
}
