package model

import "testing"

func TestParseTaskFilter(t *testing.T) {
	t.Parallel()

	f := ParseTaskFilter("  milk  ", "in_progress", "3")
	if f.Query != "milk" {
		t.Fatalf("expected trimmed query, got %q", f.Query)
	}
	if f.Status == nil || *f.Status != StatusInProgress {
		t.Fatalf("expected in_progress status, got %v", f.Status)
	}
	if f.Priority == nil || *f.Priority != PriorityHigh {
		t.Fatalf("expected high priority, got %v", f.Priority)
	}
}

func TestParseTaskFilter_InvalidValuesAreIgnored(t *testing.T) {
	t.Parallel()

	for _, status := range []string{"", "bogus", "DONE", "Done", " done"} {
		if f := ParseTaskFilter("", status, ""); f.Status != nil {
			t.Errorf("status %q: expected no filter, got %v", status, *f.Status)
		}
	}

	for _, priority := range []string{"", "0", "4", "-1", "+2", "2.0", "two", " 2", "99999999999999999999"} {
		if f := ParseTaskFilter("", "", priority); f.Priority != nil {
			t.Errorf("priority %q: expected no filter, got %v", priority, *f.Priority)
		}
	}
}

func TestParseTaskFilter_LeadingZeroPriority(t *testing.T) {
	t.Parallel()

	f := ParseTaskFilter("", "", "01")
	if f.Priority == nil || *f.Priority != PriorityLow {
		t.Fatalf("expected low priority, got %v", f.Priority)
	}
}

func TestParseTaskFilter_WhitespaceQueryIsEmpty(t *testing.T) {
	t.Parallel()

	if f := ParseTaskFilter(" \t\n", "", ""); f.Query != "" {
		t.Fatalf("expected empty query, got %q", f.Query)
	}
}
