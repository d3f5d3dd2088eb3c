package gascost

import "testing"

func TestRoundToTen(t *testing.T) {
	cases := map[uint64]uint64{
		0:   0,
		4:   0,
		5:   0,
		6:   10,
		9:   10,
		10:  10,
		14:  10,
		15:  10,
		16:  20,
		115: 110,
		116: 120,
	}
	for in, want := range cases {
		if got := roundToTen(in); got != want {
			t.Errorf("roundToTen(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestLoadRoundsEveryEntry(t *testing.T) {
	table, err := Load([]byte(`{"write_something":116,"launch":5,"operator_cost":9}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, _ := table.Cost("write_something"); got != 120 {
		t.Errorf("write_something cost = %d, want 120", got)
	}
	if got := table.LaunchCost(); got != 0 {
		t.Errorf("launch cost = %d, want 0", got)
	}
	if got := table.OperatorCost(); got != 10 {
		t.Errorf("operator cost = %d, want 10", got)
	}
}

func TestOperatorCostDefaultsWhenUnset(t *testing.T) {
	table := NewTable()
	if got := table.OperatorCost(); got != DefaultOperatorCost {
		t.Errorf("OperatorCost() = %d, want default %d", got, DefaultOperatorCost)
	}
}

func TestCostAbsentReturnsFalse(t *testing.T) {
	table := NewTable()
	if _, ok := table.Cost("nonexistent"); ok {
		t.Error("Cost on unset name should report ok=false")
	}
}

func TestSetRounds(t *testing.T) {
	table := NewTable()
	table.Set("foo", 123)
	got, ok := table.Cost("foo")
	if !ok || got != 120 {
		t.Errorf("Set/Cost roundtrip = %d,%v want 120,true", got, ok)
	}
}

func TestLoadEmptyBody(t *testing.T) {
	table, err := Load(nil)
	if err != nil {
		t.Fatalf("Load(nil): %v", err)
	}
	if table.LaunchCost() != 0 {
		t.Error("empty table should have zero launch cost")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	if _, err := Load([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
