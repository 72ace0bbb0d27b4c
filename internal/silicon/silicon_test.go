package silicon

import "testing"

func TestAdaptiveBatchMonotonic(t *testing.T) {
	c := NewAdaptiveBatchController(8)
	levels := []PressureLevel{PressureNominal, PressureElevated, PressureWarning, PressureCritical, PressureEmergency}
	prevBatch := c.Compute(levels[0], ThermalNominal).BatchSize
	for _, p := range levels[1:] {
		b := c.Compute(p, ThermalNominal).BatchSize
		if b > prevBatch {
			t.Fatalf("pressure %s produced larger batch (%d) than less severe pressure (%d)", p, b, prevBatch)
		}
		prevBatch = b
	}
}

func TestAdaptiveBatchNeverExceedsMax(t *testing.T) {
	c := NewAdaptiveBatchController(4)
	b := c.Compute(PressureNominal, ThermalCool)
	if b.BatchSize > 4 {
		t.Fatalf("batch size %d exceeds configured max 4", b.BatchSize)
	}
}

func TestAdaptiveBatchThermalNeverIncreases(t *testing.T) {
	c := NewAdaptiveBatchController(8)
	cool := c.Compute(PressureNominal, ThermalCool).BatchSize
	hot := c.Compute(PressureNominal, ThermalHot).BatchSize
	if hot > cool {
		t.Fatalf("hot thermal batch (%d) exceeds cool thermal batch (%d)", hot, cool)
	}
}

func TestMemorySnapshotPressure(t *testing.T) {
	cases := []struct {
		used, total float64
		want        PressureLevel
	}{
		{50, 100, PressureNominal},
		{75, 100, PressureElevated},
		{85, 100, PressureWarning},
		{90, 100, PressureCritical},
		{96, 100, PressureEmergency},
	}
	for _, tc := range cases {
		snap := MemorySnapshot{UsedGB: tc.used, TotalGB: tc.total}
		if got := snap.Pressure(); got != tc.want {
			t.Errorf("utilization %.0f%%: got %s, want %s", tc.used, got, tc.want)
		}
	}
}

func TestWiredBudgetExceeded(t *testing.T) {
	under := MemorySnapshot{TotalGB: 256, WiredGB: 200}
	over := MemorySnapshot{TotalGB: 256, WiredGB: 230}
	if under.WiredBudgetExceeded() {
		t.Error("200/256 should be within the 85% wired budget")
	}
	if !over.WiredBudgetExceeded() {
		t.Error("230/256 should exceed the 85% wired budget")
	}
}
