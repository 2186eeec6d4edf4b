package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/hyperengineering/regs"
)

func TestRenderTable_Plain(t *testing.T) {
	defer setMockTTY(false)()

	got := renderTable([]string{"NAME", "COUNT"}, [][]string{{"alpha", "10"}, {"beta", "200"}})
	lines := strings.Split(got, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), got)
	}
	if strings.ContainsAny(got, "─│╭╮╰╯") {
		t.Error("plain output should have no border characters")
	}
	// columns line up
	if strings.Index(lines[1], "10") != strings.Index(lines[2], "200") {
		t.Errorf("columns not aligned:\n%s", got)
	}
}

func TestRenderTable_TTY(t *testing.T) {
	defer setMockTTY(true)()

	got := renderTable([]string{"NAME"}, [][]string{{"alpha"}})
	if !strings.Contains(got, "NAME") || !strings.Contains(got, "alpha") {
		t.Errorf("table missing content:\n%s", got)
	}
	if !strings.ContainsAny(got, "─│╭╮╰╯") {
		t.Error("TTY output should contain border characters")
	}
}

func TestRenderPanel(t *testing.T) {
	defer setMockTTY(false)()

	got := renderPanel("Export Summary", "Output: a.json")
	if got != "Export Summary\nOutput: a.json" {
		t.Errorf("plain panel = %q", got)
	}

	restore := setMockTTY(true)
	defer restore()
	got = renderPanel("Export Summary", "Output: a.json")
	if !strings.Contains(got, "Export Summary") || !strings.Contains(got, "╭") {
		t.Errorf("TTY panel = %q", got)
	}
}

func TestRenderMarkdown_PlainPassThrough(t *testing.T) {
	defer setMockTTY(false)()

	in := "## Notes\n- hem 2cm"
	if got := renderMarkdown(in); got != in {
		t.Errorf("non-TTY markdown changed: %q", got)
	}
}

func TestHasMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"plain notes about the hem", false},
		{"## Fitting", true},
		{"use **double** stitching", true},
		{"- left panel", true},
		{"see [pattern](https://example.com)", true},
	}
	for _, tt := range tests {
		if got := hasMarkdown(tt.in); got != tt.want {
			t.Errorf("hasMarkdown(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseMeasurements(t *testing.T) {
	patch, err := parseMeasurements(regs.CategoryCurtains, []string{"width=2.5", "details.fullness=2", "rodHeight=-", "dropLength="})
	if err != nil {
		t.Fatal(err)
	}
	if v := patch["dimensions"]["width"]; v == nil || *v != 2.5 {
		t.Errorf("width = %v, want 2.5", v)
	}
	if v := patch["details"]["fullness"]; v == nil || *v != 2 {
		t.Errorf("fullness = %v, want 2", v)
	}
	for group, field := range map[string]string{"hardware": "rodHeight", "dimensions": "dropLength"} {
		v, ok := patch[group][field]
		if !ok || v != nil {
			t.Errorf("%s.%s = %v (present %v), want explicit clear", group, field, v, ok)
		}
	}
}

func TestParseMeasurements_Errors(t *testing.T) {
	tests := []struct {
		name string
		arg  string
	}{
		{"no equals", "width"},
		{"not a number", "width=wide"},
		{"unknown field", "chestWidth=40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseMeasurements(regs.CategoryCurtains, []string{tt.arg}); err == nil {
				t.Errorf("parseMeasurements(%q) should fail", tt.arg)
			}
		})
	}

	_, err := parseMeasurements(regs.CategoryCurtains, []string{"chestWidth=40"})
	if !errors.Is(err, regs.ErrUnknownMeasurement) {
		t.Errorf("err = %v, want ErrUnknownMeasurement", err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		512:             "512 B",
		2048:            "2.0 KiB",
		5 * 1024 * 1024: "5.0 MiB",
	}
	for in, want := range tests {
		if got := formatBytes(in); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	if got := truncate("Éclair display", 6); got != "Éclai…" {
		t.Errorf("got %q", got)
	}
}
