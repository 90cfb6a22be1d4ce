// Package traceio writes and reads the binary checkpoint-trace file format:
// a fixed preamble (magic, format version, flags, body length) followed by a
// canonical CBOR body and a BLAKE2b-256 hash over that body, in the same
// preamble-then-body-then-hash shape the corpus's planfmt package uses for
// its own binary format.
package traceio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/lmn-vm/lmn/internal/result"
)

const (
	// Magic identifies an LMN trace file (4 bytes).
	Magic = "LTRC"

	// Version is the trace format version (uint16, little-endian).
	// 0x0001 = version 1.0. Breaking changes increment this.
	Version uint16 = 0x0001
)

// Flags is a bitmask reserved for future optional features. No flag is
// defined yet; a reader rejects any set bit it does not recognize.
type Flags uint16

const maxBodyLen = 32 * 1024 * 1024 // 32MB, generous for any realistic trace

// Document is the on-disk unit: an ExecutionResult plus the hash that
// commits to its encoded body.
type Document struct {
	Result result.ExecutionResult
	Hash   [32]byte
}

// Write encodes res canonically, hashes the body with BLAKE2b-256, and
// writes MAGIC | VERSION | FLAGS | BODY_LEN | BODY | HASH to w. It returns
// the same hash so callers can record or compare it without a second pass.
func Write(w io.Writer, res result.ExecutionResult) ([32]byte, error) {
	body, err := encodeCanonical(res)
	if err != nil {
		return [32]byte{}, fmt.Errorf("traceio: encode body: %w", err)
	}

	digest := blake2b.Sum256(body)

	var preamble bytes.Buffer
	preamble.WriteString(Magic)
	if err := binary.Write(&preamble, binary.LittleEndian, Version); err != nil {
		return [32]byte{}, err
	}
	if err := binary.Write(&preamble, binary.LittleEndian, uint16(0)); err != nil {
		return [32]byte{}, err
	}
	if err := binary.Write(&preamble, binary.LittleEndian, uint64(len(body))); err != nil {
		return [32]byte{}, err
	}

	if _, err := w.Write(preamble.Bytes()); err != nil {
		return [32]byte{}, fmt.Errorf("traceio: write preamble: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return [32]byte{}, fmt.Errorf("traceio: write body: %w", err)
	}
	if _, err := w.Write(digest[:]); err != nil {
		return [32]byte{}, fmt.Errorf("traceio: write hash: %w", err)
	}
	return digest, nil
}

// Read parses a trace file produced by Write, verifying the magic, version,
// flags, and the trailing hash against a freshly computed one over the body.
func Read(r io.Reader) (Document, error) {
	var preamble [16]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return Document{}, fmt.Errorf("traceio: read preamble: %w", err)
	}

	magic := string(preamble[0:4])
	if magic != Magic {
		return Document{}, fmt.Errorf("traceio: invalid magic %q, expected %q", magic, Magic)
	}

	version := binary.LittleEndian.Uint16(preamble[4:6])
	if version != Version {
		return Document{}, fmt.Errorf("traceio: unsupported version 0x%04x, expected 0x%04x", version, Version)
	}

	flags := Flags(binary.LittleEndian.Uint16(preamble[6:8]))
	if flags != 0 {
		return Document{}, fmt.Errorf("traceio: unsupported flags 0x%04x", uint16(flags))
	}

	bodyLen := binary.LittleEndian.Uint64(preamble[8:16])
	if bodyLen > maxBodyLen {
		return Document{}, fmt.Errorf("traceio: body length %d exceeds maximum %d", bodyLen, maxBodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return Document{}, fmt.Errorf("traceio: read body: %w", err)
	}

	var wantHash [32]byte
	if _, err := io.ReadFull(r, wantHash[:]); err != nil {
		return Document{}, fmt.Errorf("traceio: read hash: %w", err)
	}

	gotHash := blake2b.Sum256(body)
	if gotHash != wantHash {
		return Document{}, fmt.Errorf("traceio: hash mismatch: file is corrupt or was tampered with")
	}

	var res result.ExecutionResult
	if err := cbor.Unmarshal(body, &res); err != nil {
		return Document{}, fmt.Errorf("traceio: decode body: %w", err)
	}

	return Document{Result: res, Hash: gotHash}, nil
}

func encodeCanonical(res result.ExecutionResult) ([]byte, error) {
	opts, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	return opts.Marshal(res)
}
