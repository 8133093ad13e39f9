package persistent

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFileHeader(&buf))

	version, err := ReadFileHeader(&buf)
	require.NoError(t, err)
	require.Equal(t, CodecVersion, version)
}

func TestReadFileHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte{'X', 'X', 'X', 'X', CodecVersion})
	_, err := ReadFileHeader(buf)
	require.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte(`{"hello":"world"}`)
	require.NoError(t, WriteFrame(&buf, payload))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestWriteFrameRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, MaxPayloadSize+1)
	err := WriteFrame(&buf, oversized)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestReadFrameDetectsCRCMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`{"a":1}`)))
	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err := ReadFrame(bytes.NewReader(corrupted))
	require.ErrorIs(t, err, ErrCRCMismatch)
}

func TestReadFrameOnEmptyReaderReturnsEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil))
	require.Error(t, err)
}

func TestMultipleFramesReadSequentially(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`"first"`)))
	require.NoError(t, WriteFrame(&buf, []byte(`"second"`)))

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, `"first"`, string(first))

	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, `"second"`, string(second))
}
