package main

import (
	"strings"
	"testing"
)

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	flag := cmd.Flags().Lookup("limit")
	if flag == nil {
		t.Fatal("expected limit flag")
	}
	if flag.DefValue != "20" {
		t.Errorf("expected default limit 20, got %q", flag.DefValue)
	}
	for _, name := range []string{"id", "delete"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestRunHistoryCmd tests recording and listing crawls.
func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("no database", func(t *testing.T) {
		t.Parallel()

		stdout, _, err := runCLI(t, "history", "-c", emptyConfigFile(t), "--history-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No crawls recorded.") {
			t.Errorf("unexpected output:\n%s", stdout)
		}
	})

	t.Run("site crawls are recorded", func(t *testing.T) {
		t.Parallel()

		server := newDocsServer(t)
		seed := server.URL + "/"
		historyDir := t.TempDir()
		cfgPath := emptyConfigFile(t)

		for range 2 {
			if _, _, err := runCLI(t, "site", "-q", "-c", cfgPath, "--history-dir", historyDir,
				"--output-dir", t.TempDir(), "-d", "1", seed); err != nil {
				t.Fatalf("site crawl failed: %v", err)
			}
		}

		stdout, _, err := runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "## Crawl History") {
			t.Errorf("missing heading:\n%s", stdout)
		}
		if strings.Count(stdout, seed) != 2 {
			t.Errorf("expected two recorded crawls:\n%s", stdout)
		}

		stdout, _, err = runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir, "--limit", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Count(stdout, seed) != 1 {
			t.Errorf("expected one crawl with limit 1:\n%s", stdout)
		}

		stdout, _, err = runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir, "--id", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"## Crawl 1: " + seed, "Pages: 3 crawled, 1 errors", server.URL + "/missing"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("detail missing %q:\n%s", want, stdout)
			}
		}

		stdout, _, err = runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir, "--delete", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "Deleted crawl 1") {
			t.Errorf("unexpected output:\n%s", stdout)
		}

		if _, _, err := runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir, "--id", "1"); err == nil {
			t.Error("expected error for deleted crawl")
		}
	})

	t.Run("no-history skips recording", func(t *testing.T) {
		t.Parallel()

		server := newDocsServer(t)
		historyDir := t.TempDir()
		cfgPath := emptyConfigFile(t)

		if _, _, err := runCLI(t, "site", "-q", "--no-history", "-c", cfgPath, "--history-dir", historyDir,
			"--output-dir", t.TempDir(), "-d", "1", server.URL+"/"); err != nil {
			t.Fatalf("site crawl failed: %v", err)
		}

		stdout, _, err := runCLI(t, "history", "-c", cfgPath, "--history-dir", historyDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "No crawls recorded.") {
			t.Errorf("expected empty history:\n%s", stdout)
		}
	})
}
