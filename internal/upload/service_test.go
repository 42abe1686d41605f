package upload

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-tracker/internal/common"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
	"github.com/joseph-ayodele/contract-tracker/internal/testutil"
)

func newService(t *testing.T, max int64) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	return NewService(Config{Dir: dir, MaxFileSize: max, ChunkSize: 64}, parse.NewRegistry(parse.Options{}, nil), nil), dir
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestSave_WritesUUIDNamedFile(t *testing.T) {
	s, dir := newService(t, 1<<20)
	data := testutil.BuildPDF("계약서 본문")

	path, err := s.Save(context.Background(), bytes.NewReader(data), "용역계약서.PDF")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".pdf", filepath.Ext(path))
	assert.Len(t, strings.TrimSuffix(filepath.Base(path), ".pdf"), 36)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	other, err := s.Save(context.Background(), bytes.NewReader(data), "용역계약서.pdf")
	require.NoError(t, err)
	assert.NotEqual(t, path, other)
}

func TestSave_RejectsUnsupportedExtension(t *testing.T) {
	s, dir := newService(t, 1<<20)
	_, err := s.Save(context.Background(), strings.NewReader("hello"), "notes.txt")
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Contains(t, common.UserMessage(err), ".hwp")
	assert.Empty(t, dirEntries(t, dir))
}

func TestSave_RejectsMismatchedContent(t *testing.T) {
	s, dir := newService(t, 1<<20)
	_, err := s.Save(context.Background(), strings.NewReader("this is not a pdf at all"), "contract.pdf")
	assert.ErrorIs(t, err, common.ErrFormatMismatch)

	_, err = s.Save(context.Background(), bytes.NewReader(nil), "empty.docx")
	assert.ErrorIs(t, err, common.ErrFormatMismatch)
	assert.Empty(t, dirEntries(t, dir))
}

func TestSave_OversizeRemovesPartialFile(t *testing.T) {
	s, dir := newService(t, 1024)
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 4096)...)

	_, err := s.Save(context.Background(), bytes.NewReader(data), "big.pdf")
	assert.ErrorIs(t, err, common.ErrFileTooLarge)
	assert.Equal(t, 413, common.HTTPStatus(err))
	assert.Empty(t, dirEntries(t, dir))
}

func TestSave_ExactlyAtLimit(t *testing.T) {
	s, _ := newService(t, 1024)
	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("x"), 1024-9)...)

	path, err := s.Save(context.Background(), bytes.NewReader(data), "edge.pdf")
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.EqualValues(t, 1024, info.Size())
}

// cancelAfterReader cancels its context once the head chunk has been consumed.
type cancelAfterReader struct {
	r      io.Reader
	cancel context.CancelFunc
	reads  int
}

func (c *cancelAfterReader) Read(p []byte) (int, error) {
	c.reads++
	if c.reads == 2 {
		c.cancel()
	}
	return c.r.Read(p)
}

func TestSave_CancelRemovesPartialFile(t *testing.T) {
	s, dir := newService(t, 1<<20)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	data := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte("y"), 1024)...)
	_, err := s.Save(ctx, &cancelAfterReader{r: bytes.NewReader(data), cancel: cancel}, "slow.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dirEntries(t, dir))
}

func TestParseAndCleanup(t *testing.T) {
	s, dir := newService(t, 1<<20)
	path, err := s.Save(context.Background(), bytes.NewReader(testutil.BuildDOCX(testutil.Para("제1조 목적"))), "a.docx")
	require.NoError(t, err)

	res, err := s.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "제1조 목적")

	s.Cleanup(path)
	assert.Empty(t, dirEntries(t, dir))

	// already gone, and empty path: both are no-ops
	s.Cleanup(path)
	s.Cleanup("")
}
