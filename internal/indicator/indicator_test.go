package indicator

import (
	"math"
	"testing"
)

func closeEnough(t *testing.T, got, want, tolerance float64, label string) {
	t.Helper()
	if math.Abs(got-want) > tolerance {
		t.Fatalf("%s: got %.4f, want %.4f (+/- %.4f)", label, got, want, tolerance)
	}
}

// S1 Wilder RSI reference: the canonical textbook example.
func TestRSI_WilderReference(t *testing.T) {
	closes := []float64{
		44.34, 44.09, 44.15, 43.61, 44.33, 44.83, 45.10, 45.42, 45.84, 46.08,
		45.89, 46.03, 45.61, 46.28, 46.28, 46.00, 46.03, 46.41, 46.22, 45.64, 46.21,
	}

	got := RSI(14, closes)
	if got == nil {
		t.Fatal("RSI returned nil for a 21-bar series")
	}
	closeEnough(t, *got, 66.25, 0.1, "RSI(14)")
}

func TestRSI_FlatSeriesIsNeutral(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100.0
	}
	got := RSI(14, closes)
	if got == nil || *got != 50 {
		t.Fatalf("RSI of a flat series = %v, want 50", got)
	}
}

func TestRSI_StrictlyIncreasingIsHundred(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i) + 1
	}
	got := RSI(14, closes)
	if got == nil || *got != 100 {
		t.Fatalf("RSI of a strictly increasing series = %v, want 100", got)
	}
}

func TestRSI_StrictlyDecreasingIsZero(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(20 - i)
	}
	got := RSI(14, closes)
	if got == nil || *got != 0 {
		t.Fatalf("RSI of a strictly decreasing series = %v, want 0", got)
	}
}

func TestRSI_TooShortIsNil(t *testing.T) {
	closes := []float64{1, 2, 3}
	if got := RSI(14, closes); got != nil {
		t.Fatalf("RSI on a 3-bar series = %v, want nil", *got)
	}
}

func TestSMA_EqualsMeanOfLastN(t *testing.T) {
	closes := []float64{10, 20, 30, 40, 50}

	for n := 1; n <= len(closes); n++ {
		got := SMA(n, closes)
		if got == nil {
			t.Fatalf("SMA(%d) returned nil for a %d-bar series", n, len(closes))
		}
		sum := 0.0
		for _, c := range closes[len(closes)-n:] {
			sum += c
		}
		want := sum / float64(n)
		if *got != want {
			t.Fatalf("SMA(%d) = %v, want %v", n, *got, want)
		}
	}

	if got := SMA(len(closes)+1, closes); got != nil {
		t.Fatalf("SMA(n) for n > len(closes) = %v, want nil", *got)
	}
}

func TestSMA_KnownValue(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	got := SMA(5, closes)
	if got == nil || *got != 3 {
		t.Fatalf("SMA(5) = %v, want 3", got)
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	closes := []float64{1, 2, 3}
	got := EMA(3, closes)
	if got == nil {
		t.Fatal("EMA(3) returned nil")
	}
	// With exactly `period` bars the EMA seed is just the SMA.
	want := 2.0
	if *got != want {
		t.Fatalf("EMA(3) with exactly 3 bars = %v, want %v (the seed SMA)", *got, want)
	}
}

func TestEMA_TooShortIsNil(t *testing.T) {
	if got := EMA(10, []float64{1, 2, 3}); got != nil {
		t.Fatalf("EMA with insufficient bars = %v, want nil", *got)
	}
}

// MACD histogram must equal macd_line - signal_line bit-exact.
func TestMACD_HistogramIsLineMinusSignal(t *testing.T) {
	closes := make([]float64, 60)
	base := 100.0
	for i := range closes {
		base += math.Sin(float64(i)/3.0) + 0.1
		closes[i] = base
	}

	got := MACD(12, 26, 9, closes)
	if got == nil {
		t.Fatal("MACD returned nil for a 60-bar series")
	}
	want := got.MACD - got.Signal
	if got.Histogram != want {
		t.Fatalf("Histogram = %v, want MACD-Signal = %v", got.Histogram, want)
	}
}

func TestMACD_SignalIsNotTheMACDTimesPointNineShortcut(t *testing.T) {
	// A prior implementation approximated signal as macd*0.9 instead of an
	// EMA over the MACD-line series. Verify the signal is not that shortcut.
	closes := make([]float64, 60)
	base := 50.0
	for i := range closes {
		base += 0.3
		closes[i] = base
	}

	got := MACD(12, 26, 9, closes)
	if got == nil {
		t.Fatal("MACD returned nil for a 60-bar series")
	}
	shortcut := got.MACD * 0.9
	if got.Signal == shortcut {
		t.Fatalf("signal line equals the macd*0.9 shortcut; expected an EMA(9) over the MACD-line series")
	}
}

func TestMACD_InsufficientBarsIsNil(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = float64(i)
	}
	if got := MACD(12, 26, 9, closes); got != nil {
		t.Fatalf("MACD on a 20-bar series = %+v, want nil", got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name                 string
		rsi                  *float64
		wantOversold         bool
		wantOverbought       bool
	}{
		{"just below 30", ptr(29.99), true, false},
		{"exactly 30", ptr(30.00), false, false},
		{"nil rsi", nil, false, false},
		{"just above 70", ptr(70.01), false, true},
		{"exactly 70", ptr(70.00), false, false},
		{"neutral", ptr(50.0), false, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			oversold, overbought := Classify(c.rsi)
			if oversold != c.wantOversold || overbought != c.wantOverbought {
				t.Fatalf("Classify(%v) = (%v, %v), want (%v, %v)",
					c.rsi, oversold, overbought, c.wantOversold, c.wantOverbought)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }
