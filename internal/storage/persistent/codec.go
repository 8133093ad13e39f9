// Package persistent implements the durable write-ahead-log + immutable
// segment storage substrate (spec §4.2), grounded directly on
// internal/service/trace/wal.go's magic+version+CRC framing idiom from the
// teacher codebase.
package persistent

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

// Magic bytes every persistent file begins with.
var Magic = [4]byte{'K', 'Y', 'R', 'O'}

// CodecVersion is the current frame codec version.
const CodecVersion byte = 1

// MaxPayloadSize bounds a single frame's JSON payload (spec §4.2).
const MaxPayloadSize = 100 * 1024 * 1024

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// ErrPayloadTooLarge is returned when a frame's payload exceeds MaxPayloadSize.
var ErrPayloadTooLarge = fmt.Errorf("persistent: payload exceeds max size %d", MaxPayloadSize)

// ErrCRCMismatch is returned when a frame's checksum does not match its
// payload; callers must stop iteration at the failing frame (truncation
// semantics, spec §4.2/§7).
var ErrCRCMismatch = fmt.Errorf("persistent: crc mismatch")

// WriteFileHeader writes the 5-byte file header (magic + codec version).
func WriteFileHeader(w io.Writer) error {
	var buf [5]byte
	copy(buf[:4], Magic[:])
	buf[4] = CodecVersion
	_, err := w.Write(buf[:])
	return err
}

// ReadFileHeader reads and validates the 5-byte file header.
func ReadFileHeader(r io.Reader) (version byte, err error) {
	var buf [5]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("persistent: read header: %w", err)
	}
	if buf[0] != Magic[0] || buf[1] != Magic[1] || buf[2] != Magic[2] || buf[3] != Magic[3] {
		return 0, fmt.Errorf("persistent: bad magic bytes")
	}
	return buf[4], nil
}

// WriteFrame writes one [length:4 LE][payload][crc32:4 LE] record. The
// version byte is carried at the file-header level, not per-frame, since
// every frame in a file shares the header's codec version.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	checksum := crc32.Checksum(payload, crcTable)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], checksum)
	_, err := w.Write(crcBuf[:])
	return err
}

// ReadFrame reads one frame. io.EOF (possibly io.ErrUnexpectedEOF for a
// partial frame) signals clean end-of-file; ErrCRCMismatch or an oversized
// length signal a corrupt frame — both are "stop iteration here" conditions
// per spec §4.2/§7.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	want := binary.LittleEndian.Uint32(crcBuf[:])
	got := crc32.Checksum(payload, crcTable)
	if want != got {
		return nil, ErrCRCMismatch
	}
	return payload, nil
}
