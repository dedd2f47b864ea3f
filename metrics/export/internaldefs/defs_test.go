package internaldefs

import (
	"strings"
	"testing"

	goAccount "github.com/MrEthical07/goAccount"
)

func TestCounterDefsCoverEveryCounter(t *testing.T) {
	seen := make(map[goAccount.MetricID]bool)
	names := make(map[string]bool)
	for _, def := range CounterDefs {
		if seen[def.ID] {
			t.Fatalf("duplicate counter id %d", def.ID)
		}
		if names[def.Name] {
			t.Fatalf("duplicate counter name %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "goaccount_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("counter %s does not follow naming", def.Name)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for _, def := range HistogramDefs {
		seen[def.ID] = true
	}
	for id := goAccount.MetricID(0); int(id) < goAccount.MetricIDCount; id++ {
		if !seen[id] {
			t.Fatalf("metric id %d has no definition", id)
		}
	}
}

func TestBoundTablesAlign(t *testing.T) {
	if len(HistogramBounds) != 8 || len(HistogramBoundSuffix) != 8 || len(HistogramUpperBounds) != 8 {
		t.Fatalf("bucket tables must have eight entries")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 0, 2, 0, 0, 0, 0, 3, 9}))
	want := [8]uint64{1, 1, 3, 3, 3, 3, 3, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
