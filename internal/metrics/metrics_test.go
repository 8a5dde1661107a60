package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGet_Singleton(t *testing.T) {
	if Get() != Get() {
		t.Error("Get() should return the same instance")
	}
}

func TestObserveCompression(t *testing.T) {
	m := Get()
	beforeTotal := testutil.ToFloat64(m.CompressionsTotal)
	beforeURL := testutil.ToFloat64(m.PlaceholdersTotal.WithLabelValues("url"))
	beforeSaved := testutil.ToFloat64(m.TokensSavedTotal)

	m.ObserveCompression(map[string]int{"url": 2}, 20, 15, time.Millisecond)
	// Growth is not counted as savings.
	m.ObserveCompression(map[string]int{}, 1, 5, time.Millisecond)

	if got := testutil.ToFloat64(m.CompressionsTotal) - beforeTotal; got != 2 {
		t.Errorf("compressions delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.PlaceholdersTotal.WithLabelValues("url")) - beforeURL; got != 2 {
		t.Errorf("url placeholders delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TokensSavedTotal) - beforeSaved; got != 5 {
		t.Errorf("tokens saved delta = %v, want 5", got)
	}
}

func TestObserveRestoration(t *testing.T) {
	m := Get()
	passed := testutil.ToFloat64(m.RestorationsTotal.WithLabelValues("passed"))
	failed := testutil.ToFloat64(m.RestorationsTotal.WithLabelValues("failed"))

	m.ObserveRestoration(true)
	m.ObserveRestoration(false)
	m.ObserveRestoration(false)

	if got := testutil.ToFloat64(m.RestorationsTotal.WithLabelValues("passed")) - passed; got != 1 {
		t.Errorf("passed delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RestorationsTotal.WithLabelValues("failed")) - failed; got != 2 {
		t.Errorf("failed delta = %v, want 2", got)
	}
}
