// Package logs reads the shared corral log file for the CLI. The daemon
// appends newline-delimited entries; this package only ever reads.
package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls how much of the log file is returned and whether the
// caller keeps watching for new entries.
type TailOptions struct {
	// Limit caps the number of trailing lines returned on the first read.
	Limit int
	// Follow keeps polling the file for appended lines until the context
	// is cancelled.
	Follow bool
	// PollInterval is how often Follow checks for new lines. Zero means
	// 250ms.
	PollInterval time.Duration
}

// Tail returns the last lines of the log file and, when Follow is set, keeps
// streaming appended lines to emit until the context is cancelled. A missing
// file is not an error; follow mode waits for it to appear.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(line string)) error {
	if emit == nil {
		return errors.New("emit callback is required")
	}

	lines, offset, err := readLast(path, opts.Limit)
	if err != nil {
		return err
	}
	for _, line := range lines {
		emit(line)
	}

	if !opts.Follow {
		return nil
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		// The file rotates by truncation; start over when it shrinks.
		if info, err := os.Stat(path); err == nil && info.Size() < offset {
			offset = 0
		}

		var fresh []string
		fresh, offset, err = readFrom(path, offset)
		if err != nil {
			return err
		}
		for _, line := range fresh {
			emit(line)
		}
	}
}

// readLast scans the whole file keeping the trailing limit lines in a ring
// buffer and returns them along with the end-of-file offset.
func readLast(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	scanner := newLineScanner(file)
	if limit <= 0 {
		for scanner.Scan() {
		}
		if err := scanner.Err(); err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		offset, err := endOffset(file)
		return nil, offset, err
	}

	ring := make([]string, limit)
	count, idx := 0, 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := endOffset(file)
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, count)
	if count == limit {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%limit]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, offset, nil
}

func readFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, offset, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}

	scanner := newLineScanner(file)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}

	newOffset, err := endOffset(file)
	if err != nil {
		return nil, offset, err
	}
	return lines, newOffset, nil
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return scanner
}

func endOffset(file *os.File) (int64, error) {
	offset, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return offset, nil
}
