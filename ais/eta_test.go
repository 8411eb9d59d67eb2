package ais

import (
	"testing"
	"time"
)

func TestComposeETA(t *testing.T) {
	now := time.Date(2024, time.December, 15, 12, 0, 0, 0, time.UTC)

	got := composeETA(now, 2, 10, 0, 0)
	if got == nil {
		t.Fatalf("expected a non-nil ETA")
	}
	want := time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestComposeETASameYear(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	got := composeETA(now, 12, 25, 18, 30)
	if got == nil {
		t.Fatalf("expected a non-nil ETA")
	}
	want := time.Date(2024, time.December, 25, 18, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestComposeETAInvalidDate(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := composeETA(now, 2, 31, 0, 0); got != nil {
		t.Fatalf("expected nil ETA for Feb 31, got %v", got)
	}
}

func TestComposeETANoEta(t *testing.T) {
	now := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	if got := composeETA(now, 0, 0, 0, 0); got != nil {
		t.Fatalf("expected nil ETA for month=0, got %v", got)
	}
}
