package traceio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lmn-vm/lmn/internal/result"
)

func sampleResult() result.ExecutionResult {
	return result.ExecutionResult{
		Status:             result.Halted,
		PhasesExecuted:     1,
		OperationsExecuted: 3,
		FinalState: result.FinalState{
			Stack:        []string{"a", "b"},
			Bindings:     map[string]string{"k": "v"},
			Depth:        2,
			BindingCount: 1,
		},
		Trace: []result.TraceRecord{
			{Phase: "T", Operation: 1, Stack: []string{"a"}, Bindings: map[string]string{}},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()

	wantHash, err := Write(&buf, res)
	require.NoError(t, err)

	doc, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, wantHash, doc.Hash)
	require.Equal(t, res, doc.Result)
}

func TestWriteIsDeterministic(t *testing.T) {
	res := sampleResult()

	var buf1, buf2 bytes.Buffer
	h1, err := Write(&buf1, res)
	require.NoError(t, err)
	h2, err := Write(&buf2, res)
	require.NoError(t, err)

	require.Equal(t, h1, h2)
	require.True(t, bytes.Equal(buf1.Bytes(), buf2.Bytes()))
}

func TestReadRejectsBadMagic(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, sampleResult())
	require.NoError(t, err)

	corrupt := buf.Bytes()
	corrupt[0] = 'X'

	_, err = Read(bytes.NewReader(corrupt))
	require.Error(t, err)
}

func TestReadRejectsTamperedBody(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, sampleResult())
	require.NoError(t, err)

	corrupt := buf.Bytes()
	// Flip a byte inside the body, which sits right after the 16-byte preamble.
	corrupt[16] ^= 0xFF

	_, err = Read(bytes.NewReader(corrupt))
	require.Error(t, err)
}

func TestReadRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	_, err := Write(&buf, sampleResult())
	require.NoError(t, err)

	corrupt := buf.Bytes()
	corrupt[4] = 0xFF
	corrupt[5] = 0xFF

	_, err = Read(bytes.NewReader(corrupt))
	require.Error(t, err)
}
