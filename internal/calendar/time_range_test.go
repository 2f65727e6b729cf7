package calendar

import (
	"strings"
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func TestNewTimeRange_Invalid(t *testing.T) {
	if _, err := NewTimeRange(time.Time{}, time.Time{}); err == nil {
		t.Fatalf("expected error for zero times, got nil")
	}
	start := mustTime(t, 2025, 1, 1, 10, 0)
	if _, err := NewTimeRange(start, start); err == nil {
		t.Fatalf("expected error for empty range, got nil")
	}
}

func TestHasOverlap_NoOverlap(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	has, conflicts := HasOverlap(newRange, existing, false)
	if has {
		t.Fatalf("expected no overlap, got conflicts: %+v", conflicts)
	}
}

func TestHasOverlap_TouchInclusive(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 0),
		End:   mustTime(t, 2025, 1, 1, 11, 0),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	if has, _ := HasOverlap(newRange, existing, true); !has {
		t.Fatalf("expected overlap in inclusive mode")
	}
}

func TestHasOverlap_OverlapFound(t *testing.T) {
	newRange := TimeRange{
		Start: mustTime(t, 2025, 1, 1, 10, 30),
		End:   mustTime(t, 2025, 1, 1, 11, 30),
	}
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 9, 0), End: mustTime(t, 2025, 1, 1, 10, 0)},
		{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)},
	}

	has, conflicts := HasOverlap(newRange, existing, false)
	if !has {
		t.Fatalf("expected overlap, got none")
	}
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
}

func TestFormatSlotLabel(t *testing.T) {
	tr := TimeRange{
		Start: mustTime(t, 2024, 3, 11, 3, 30),
		End:   mustTime(t, 2024, 3, 11, 3, 45),
	}
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	got := FormatSlotLabel(tr, kolkata, "")
	if got != "Monday, 11.03.2024, 09:00–09:15" {
		t.Fatalf("unexpected label %q", got)
	}

	withID := FormatSlotLabel(tr, kolkata, "slot-123")
	if !strings.HasSuffix(withID, "(ID: slot-123)") {
		t.Fatalf("expected label with ID, got %q", withID)
	}
}

func TestNewPage(t *testing.T) {
	page, size, offset := NormalizePage(2, 5)
	if page != 2 || size != 5 || offset != 5 {
		t.Fatalf("unexpected normalize result %d %d %d", page, size, offset)
	}

	p := NewPage([]int{6, 7, 8, 9, 10}, page, size, 11)
	if !p.HasPrev || !p.HasNext || p.Total != 11 {
		t.Fatalf("unexpected page meta %+v", p)
	}

	last := NewPage([]int{11}, 3, 5, 11)
	if last.HasNext {
		t.Fatalf("expected HasNext=false on last page")
	}

	empty := NewPage[int](nil, 1, 10, 0)
	if empty.Items == nil || empty.HasNext || empty.HasPrev {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}

func TestNormalizePage_Defaults(t *testing.T) {
	page, size, offset := NormalizePage(0, 0)
	if page != 1 || size != DefaultPageSize || offset != 0 {
		t.Fatalf("unexpected defaults %d %d %d", page, size, offset)
	}
	if _, size, _ := NormalizePage(1, MaxPageSize+1); size != MaxPageSize {
		t.Fatalf("expected page size clamp to %d, got %d", MaxPageSize, size)
	}
}
