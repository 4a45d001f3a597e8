package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveTool_ConfiguredPathFound(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fake-pv")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := resolveTool(tool, "pv")
	if got != tool {
		t.Errorf("resolveTool = %q, want configured path %q", got, tool)
	}
}

func TestResolveTool_MissingReportsName(t *testing.T) {
	got := resolveTool("/nonexistent/bin/pv", "pv")
	if !strings.Contains(got, "not found") {
		t.Errorf("missing tool should be reported, got %q", got)
	}
	if !strings.Contains(got, "/nonexistent/bin/pv") {
		t.Errorf("report should name the configured path, got %q", got)
	}
}

func TestResolveTool_EmptyFallsBack(t *testing.T) {
	got := resolveTool("", "definitely-not-a-real-tool-name")
	if !strings.Contains(got, "definitely-not-a-real-tool-name") {
		t.Errorf("empty configured path should fall back to the default name, got %q", got)
	}
}
