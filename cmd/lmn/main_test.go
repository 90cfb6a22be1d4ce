package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lmn-vm/lmn/internal/parser"
	"github.com/lmn-vm/lmn/internal/traceio"
)

func writeSource(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.lmn")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestRunOnceWritesTraceFile(t *testing.T) {
	path := writeSource(t, `T { PUSH "a" WITNESS HALT }`)
	traceOut := filepath.Join(t.TempDir(), "trace.ltrc")

	f := &flagSet{trace: true, traceOut: traceOut}
	err := runOnce(path, f)
	require.NoError(t, err)

	file, err := os.Open(traceOut)
	require.NoError(t, err)
	defer file.Close()

	doc, err := traceio.Read(file)
	require.NoError(t, err)
	assert.Len(t, doc.Result.Trace, 1)
	assert.Equal(t, "T", doc.Result.Trace[0].Phase)
}

func TestRunOnceWithoutTraceOutSkipsFile(t *testing.T) {
	path := writeSource(t, `T { PUSH "a" HALT }`)
	f := &flagSet{}
	require.NoError(t, runOnce(path, f))
}

func TestCheckFileDumpASTHashIsDeterministic(t *testing.T) {
	src := `T { PUSH "a" HALT }`
	path := writeSource(t, src)
	require.NoError(t, checkFile(path, &flagSet{dumpAST: true}))

	prog, err := parser.Parse(src)
	require.NoError(t, err)
	hash, err := prog.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, [32]byte{}, hash)

	// Re-parsing identical source must hash identically.
	prog2, err := parser.Parse(src)
	require.NoError(t, err)
	hash2, err := prog2.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, hash2)
}
