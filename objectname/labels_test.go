package objectname

import (
	"strings"
	"testing"
)

func TestBucketLabelFormat(t *testing.T) {
	got := BucketLabel("PONY", 3, 1000, Extended)
	if !strings.HasPrefix(got, "02_") {
		t.Fatalf("got %q, want 02_ prefix", got)
	}
	if !strings.HasSuffix(got, "_extended") {
		t.Fatalf("got %q, want _extended suffix", got)
	}
	want := "02_" + TidyOriginName("PONY") + "_00000000000000000003_00000000000000001000_extended"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestWriteLockLabelFormat(t *testing.T) {
	got := WriteLockLabel("PONY")
	want := "02_" + TidyOriginName("PONY") + "_write_lock"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInternalLabelFormat(t *testing.T) {
	got := InternalLabel("PONY", 128, Simple)
	want := "02_" + TidyOriginName("PONY") + "_INTERNAL_00000000000000000128_00000000000000000000_simple"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestKindString(t *testing.T) {
	if Simple.String() != "simple" {
		t.Errorf("Simple.String() = %q, want simple", Simple.String())
	}
	if Extended.String() != "extended" {
		t.Errorf("Extended.String() = %q, want extended", Extended.String())
	}
}
