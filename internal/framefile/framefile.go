// Package framefile implements the append-only, newline-delimited,
// base64-framed file format shared by the ledger and the mempool: one
// base64 payload per line, fsynced on every append.
package framefile

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"sync"
)

// maxLineSize bounds a single frame so a truncated or corrupted file can't
// exhaust memory on load.
const maxLineSize = 64 * 1024 * 1024

// File is a single append-only framed file. One writer, many readers are
// safe via the embedded mutex; callers needing cross-process safety must
// still serialize at a higher level (a lock file or single-process
// ownership), same as the rest of this store's durability model.
type File struct {
	mu   sync.Mutex
	path string
	w    *os.File
}

// Open opens (creating if absent) the framed file at path for appending.
func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open framefile %s: %w", path, err)
	}
	return &File{path: path, w: f}, nil
}

// Append base64-encodes payload and writes it as one line, fsyncing before
// returning so a crash immediately after Append cannot lose the frame.
func (f *File) Append(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	line := base64.StdEncoding.EncodeToString(payload) + "\n"
	if _, err := f.w.WriteString(line); err != nil {
		return fmt.Errorf("append frame: %w", err)
	}
	return f.w.Sync()
}

// LoadAll reads every frame in the file in append order, base64-decoding
// each. A missing file is treated as empty rather than an error. A line
// that fails to base64-decode is a corrupt frame, not a fatal error: it is
// skipped and counted in skipped, so one damaged record can't destroy every
// valid frame around it.
func LoadAll(path string) (frames [][]byte, skipped int, err error) {
	r, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open framefile %s: %w", path, err)
	}
	defer r.Close()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		payload, decodeErr := base64.StdEncoding.DecodeString(string(line))
		if decodeErr != nil {
			skipped++
			continue
		}
		frames = append(frames, payload)
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, fmt.Errorf("scan framefile %s: %w", path, err)
	}
	return frames, skipped, nil
}

// Truncate discards all frames, used by the mempool after a successful
// drain into a sealed block.
func (f *File) Truncate() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.w.Close(); err != nil {
		return fmt.Errorf("close before truncate: %w", err)
	}
	nf, err := os.OpenFile(f.path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("truncate framefile %s: %w", f.path, err)
	}
	nf.Close()
	w, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("reopen framefile %s: %w", f.path, err)
	}
	f.w = w
	return nil
}

// ReadRaw returns the file's exact on-disk bytes: the newline-delimited,
// already-base64-encoded frames, unparsed. Used where a caller must hand
// back the ledger file's literal contents rather than a reserialization of
// its decoded frames.
func (f *File) ReadRaw() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read framefile %s: %w", f.path, err)
	}
	return data, nil
}

// Close closes the underlying file.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.w.Close()
}
