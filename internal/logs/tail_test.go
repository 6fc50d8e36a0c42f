package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"corral/internal/logs"
)

func writeLog(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corral.log")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func collect(t *testing.T, path string, opts logs.TailOptions) []string {
	t.Helper()
	var lines []string
	if err := logs.Tail(context.Background(), path, opts, func(line string) {
		lines = append(lines, line)
	}); err != nil {
		t.Fatalf("tail: %v", err)
	}
	return lines
}

func TestTailReturnsTrailingLines(t *testing.T) {
	path := writeLog(t, "one\ntwo\nthree\nfour\n")

	lines := collect(t, path, logs.TailOptions{Limit: 2})
	if len(lines) != 2 || lines[0] != "three" || lines[1] != "four" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestTailLimitLargerThanFile(t *testing.T) {
	path := writeLog(t, "only\n")

	lines := collect(t, path, logs.TailOptions{Limit: 10})
	if len(lines) != 1 || lines[0] != "only" {
		t.Fatalf("unexpected lines: %v", lines)
	}
}

func TestTailMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")

	lines := collect(t, path, logs.TailOptions{Limit: 5})
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %v", lines)
	}
}

func TestTailFollowPicksUpAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- logs.Tail(ctx, path, logs.TailOptions{Limit: 1, Follow: true, PollInterval: 10 * time.Millisecond}, func(line string) {
			got <- line
		})
	}()

	if line := <-got; line != "start" {
		t.Fatalf("expected initial line, got %q", line)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("appended\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	select {
	case line := <-got:
		if line != "appended" {
			t.Fatalf("expected appended line, got %q", line)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for appended line")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
