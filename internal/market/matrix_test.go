package market

import (
	"math"
	"testing"
	"time"
)

func tradingDates(n int) []time.Time {
	out := make([]time.Time, n)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = base.AddDate(0, 0, i)
	}
	return out
}

func TestNewRejectsBadInput(t *testing.T) {
	dates := tradingDates(3)

	if _, err := New(nil, []string{"AAPL"}, [][]float64{{1}}); err == nil {
		t.Fatalf("expected error for empty dates")
	}
	if _, err := New(dates, []string{"AAPL", "AAPL"}, [][]float64{{1, 2, 3}, {1, 2, 3}}); err == nil {
		t.Fatalf("expected error for duplicate symbols")
	}
	if _, err := New(dates, []string{"AAPL"}, [][]float64{{1, 2}}); err == nil {
		t.Fatalf("expected error for short column")
	}
	if _, err := New(dates, []string{"AAPL"}, [][]float64{{1, math.NaN(), 3}}); err == nil {
		t.Fatalf("expected error for NaN price")
	}

	unordered := []time.Time{dates[0], dates[2], dates[1]}
	if _, err := New(unordered, []string{"AAPL"}, [][]float64{{1, 2, 3}}); err == nil {
		t.Fatalf("expected error for unordered dates")
	}
}

func TestAlignForwardFillsAndTrims(t *testing.T) {
	dates := tradingDates(5)
	nan := math.NaN()
	cols := [][]float64{
		{nan, 10, nan, 12, 13},
		{5, 6, 7, nan, 9},
	}

	m, err := Align(dates, []string{"Y", "X"}, cols)
	if err != nil {
		t.Fatalf("Align returned error: %v", err)
	}
	if m.Len() != 4 {
		t.Fatalf("expected 4 rows after trimming leading gap, got %d", m.Len())
	}
	y, _ := m.Column("Y")
	if y[1] != 10 {
		t.Fatalf("expected forward-filled value 10, got %v", y[1])
	}
	x, _ := m.Column("X")
	if x[2] != 7 {
		t.Fatalf("expected forward-filled value 7, got %v", x[2])
	}
}

func TestAlignAllGapsFails(t *testing.T) {
	dates := tradingDates(2)
	nan := math.NaN()
	if _, err := Align(dates, []string{"Y"}, [][]float64{{nan, nan}}); err == nil {
		t.Fatalf("expected error when no rows survive alignment")
	}
}

func TestReturns(t *testing.T) {
	dates := tradingDates(3)
	m, err := New(dates, []string{"Y"}, [][]float64{{100, 110, 99}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ret, ok := m.Returns("Y")
	if !ok {
		t.Fatalf("expected returns for Y")
	}
	if ret[0] != 0 {
		t.Fatalf("first return must be zero, got %v", ret[0])
	}
	if math.Abs(ret[1]-0.1) > 1e-12 {
		t.Fatalf("expected 0.1, got %v", ret[1])
	}
	if _, ok := m.Returns("MISSING"); ok {
		t.Fatalf("expected missing symbol to report !ok")
	}
}
