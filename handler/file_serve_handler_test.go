package handler

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newDocRoot builds a document root holding notes.txt ("hi\n") and an
// empty docs subdirectory.
func newDocRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi\n"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0755))
	return root
}

// readRaw reads exactly n bytes off the session, bypassing line framing.
func readRaw(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()

	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return buf
}

func TestFileServe_Handle_BlankLineListsDocumentRoot(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "")
	assert.Equal(t, fmt.Sprintf("目录 %s 下有文件：", root), readLine(t, r))
	entries := []string{readLine(t, r), readLine(t, r)}
	assert.ElementsMatch(t, []string{"notes.txt", "docs"}, entries)

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_ReadableFileOutcome(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "notes.txt")
	want := filepath.Join(root, "notes.txt")
	assert.Equal(t, fmt.Sprintf("File %s 的内容是：", want), readLine(t, r))
	// File bytes arrive verbatim, followed by exactly one terminator.
	assert.Equal(t, "hi\n\n", string(readRaw(t, r, 4)))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_FileContentIsVerbatim(t *testing.T) {
	root := newDocRoot(t)
	content := "line1\nline2\nno trailing terminator"
	require.NoError(t, os.WriteFile(filepath.Join(root, "multi.txt"), []byte(content), 0644))

	client, r, done := startSession(t, &FileServe{DocumentRoot: root})
	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "multi.txt")
	assert.Equal(t, fmt.Sprintf("File %s 的内容是：", filepath.Join(root, "multi.txt")), readLine(t, r))
	assert.Equal(t, content+"\n", string(readRaw(t, r, len(content)+1)))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_NotFoundOutcome(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "missing.txt")
	assert.Equal(t, fmt.Sprintf("File %s is not found.", filepath.Join(root, "missing.txt")), readLine(t, r))

	// Not found is a normal outcome; the session keeps going.
	sendLine(t, client, "notes.txt")
	assert.Equal(t, fmt.Sprintf("File %s 的内容是：", filepath.Join(root, "notes.txt")), readLine(t, r))
	assert.Equal(t, "hi\n\n", string(readRaw(t, r, 4)))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_DanglingSymlinkIsNotFound(t *testing.T) {
	root := newDocRoot(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")))

	client, r, done := startSession(t, &FileServe{DocumentRoot: root})
	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "dangling")
	assert.Equal(t, fmt.Sprintf("File %s is not found.", filepath.Join(root, "dangling")), readLine(t, r))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_EmptySubdirectoryListing(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	sendLine(t, client, "docs")
	assert.Equal(t, fmt.Sprintf("目录 %s 下有文件：", filepath.Join(root, "docs")), readLine(t, r))

	// No entry lines: the next response follows immediately.
	sendLine(t, client, "notes.txt")
	assert.Equal(t, fmt.Sprintf("File %s 的内容是：", filepath.Join(root, "notes.txt")), readLine(t, r))
	assert.Equal(t, "hi\n\n", string(readRaw(t, r, 4)))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_RepeatedRequestsAreIndependent(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	header := fmt.Sprintf("File %s 的内容是：", filepath.Join(root, "notes.txt"))
	for i := 0; i < 2; i++ {
		sendLine(t, client, "notes.txt")
		assert.Equal(t, header, readLine(t, r))
		assert.Equal(t, "hi\n\n", string(readRaw(t, r, 4)))
	}

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Handle_ParentReferencesStayInsideRoot(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	// "../../x" resolves inside the root, so the response names the
	// contained path rather than anything above the root.
	sendLine(t, client, "../../secret")
	assert.Equal(t, fmt.Sprintf("File %s is not found.", filepath.Join(root, "secret")), readLine(t, r))

	sendLine(t, client, "stop")
	assert.Equal(t, FileServeFarewell, readLine(t, r))
	require.NoError(t, waitDone(t, done))
}

func TestFileServe_Resolve(t *testing.T) {
	h := &FileServe{DocumentRoot: "/srv"}

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"blank line resolves to the root", "", "/srv"},
		{"plain file name", "notes.txt", "/srv/notes.txt"},
		{"nested path", "docs/readme.md", "/srv/docs/readme.md"},
		{"parent references cannot escape", "../../etc/passwd", "/srv/etc/passwd"},
		{"interior parent references collapse", "a/../b", "/srv/b"},
		{"absolute input is treated as rooted", "/etc/passwd", "/srv/etc/passwd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.Resolve(tt.input))
		})
	}
}

func TestFileServe_Handle_DisconnectWithoutStop(t *testing.T) {
	root := newDocRoot(t)
	client, r, done := startSession(t, &FileServe{DocumentRoot: root})

	assert.Equal(t, FileServeGreeting, readLine(t, r))

	require.NoError(t, client.Close())
	require.NoError(t, waitDone(t, done))
}
