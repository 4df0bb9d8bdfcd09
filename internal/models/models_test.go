package models

import "testing"

func TestPriority_Valid(t *testing.T) {
	tests := []struct {
		p    Priority
		want bool
	}{
		{"", true},
		{PriorityHigh, true},
		{PriorityMedium, true},
		{PriorityLow, true},
		{"high", false},
		{"Urgent", false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("Priority(%q).Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestStringList_ValueAndScan(t *testing.T) {
	v, err := StringList{"math", "exam"}.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != `["math","exam"]` {
		t.Fatalf("Value = %v", v)
	}

	var nilList StringList
	if v, _ := nilList.Value(); v != "[]" {
		t.Fatalf("nil Value = %v, want []", v)
	}

	var got StringList
	if err := got.Scan([]byte(`["a","b"]`)); err != nil {
		t.Fatalf("Scan bytes: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("Scan bytes = %v", got)
	}
	if err := got.Scan(nil); err != nil || got == nil || len(got) != 0 {
		t.Fatalf("Scan nil = %v, %v", got, err)
	}
	if err := got.Scan(42); err == nil {
		t.Fatal("expected error scanning int")
	}
}
