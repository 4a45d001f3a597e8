// Package history persists transfer attempt records to a local append-only
// journal.
//
// The on-disk format is a sequence of length-prefixed msgpack frames: a
// 4-byte big-endian payload length followed by one encoded Record. A crash
// mid-append leaves a truncated final frame; readers treat that as the end
// of the journal rather than corruption, so a damaged tail never hides the
// attempts that preceded it.
package history

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame size constants.
const (
	// MaxRecordSize is the maximum encoded record size (1 MiB), including
	// the length prefix. Diagnostic retention caps keep real records far
	// below this.
	MaxRecordSize = 1 << 20
	// MaxPayloadSize is the maximum payload size.
	MaxPayloadSize = MaxRecordSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// RecordErrorKind classifies journal record errors.
type RecordErrorKind int

const (
	// RecordErrorPartial indicates a truncated frame.
	RecordErrorPartial RecordErrorKind = iota
	// RecordErrorTooLarge indicates a frame exceeding MaxRecordSize.
	RecordErrorTooLarge
	// RecordErrorDecode indicates a msgpack decoding error.
	RecordErrorDecode
)

// RecordError represents a journal framing or decoding error.
type RecordError struct {
	Kind RecordErrorKind
	Msg  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsCorruption returns true for structural damage that tolerant reads do
// not skip: oversized frames and undecodable payloads.
func IsCorruption(err error) bool {
	var recErr *RecordError
	if errors.As(err, &recErr) {
		return recErr.Kind == RecordErrorTooLarge || recErr.Kind == RecordErrorDecode
	}
	return false
}

// Journal is the append side of the history log. One writer per process;
// appends are serialized internally.
type Journal struct {
	mu   sync.Mutex
	file *os.File
}

// Open opens the journal for appending, creating the file and its parent
// directory as needed.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{file: f}, nil
}

// Append encodes one record and writes it as a single frame.
func (j *Journal) Append(rec Record) error {
	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return &RecordError{
			Kind: RecordErrorDecode,
			Msg:  "encode record",
			Err:  err,
		}
	}
	if len(payload) > MaxPayloadSize {
		return &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record payload %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	// One Write call per frame: an interrupted append can truncate the
	// frame but never interleave two of them.
	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.file.Write(frame); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}

// Read loads every complete record in append order. A missing file is an
// empty journal. A truncated final frame ends the read silently; oversized
// or undecodable frames are corruption and surface as an error alongside
// the records read so far.
func Read(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	for {
		var lengthBuf [LengthPrefixSize]byte
		if _, err := io.ReadFull(f, lengthBuf[:]); err != nil {
			// EOF at a frame boundary is the clean end; anything short
			// of a full prefix is a truncated tail.
			return records, nil
		}

		payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
		if payloadSize > MaxPayloadSize {
			return records, &RecordError{
				Kind: RecordErrorTooLarge,
				Msg:  fmt.Sprintf("frame payload %d exceeds maximum %d", payloadSize, MaxPayloadSize),
			}
		}

		payload := make([]byte, payloadSize)
		if _, err := io.ReadFull(f, payload); err != nil {
			// Truncated tail.
			return records, nil
		}

		var rec Record
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			return records, &RecordError{
				Kind: RecordErrorDecode,
				Msg:  "decode record",
				Err:  err,
			}
		}
		records = append(records, rec)
	}
}
