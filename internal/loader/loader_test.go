package loader

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pages ...string) []byte {
	var objs []string
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	objs = append(objs, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")
	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objs = append(objs,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), content, 0o644))
}

func TestLoadDirectory_SupportedAndUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", []byte("plain text body"))
	writeFile(t, dir, "b.csv", []byte("name,colour\napple,red\nsky,blue\n"))
	writeFile(t, dir, "c.html", []byte("<html><head><title>T</title><style>p{}</style></head><body><p>Hello</p><script>x()</script><p>World</p></body></html>"))
	writeFile(t, dir, "d.md", []byte("# Heading\n\nSome *emphasis* here.\n"))
	writeFile(t, dir, "e.json", []byte(`{"b": 1, "a": {"x": [1, 2]}}`))
	writeFile(t, dir, "f.pdf", buildPDF("Hello page one", "Second page"))
	writeFile(t, dir, "image.png", []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	var logs bytes.Buffer
	ld := New(WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	docs, err := ld.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)

	bySource := map[string][]string{}
	for _, d := range docs {
		bySource[d.Source] = append(bySource[d.Source], d.Content)
		assert.Equal(t, d.Source, d.Metadata["source"])
	}
	assert.Equal(t, []string{"plain text body"}, bySource["a.txt"])
	assert.Equal(t, []string{"name: apple\ncolour: red", "name: sky\ncolour: blue"}, bySource["b.csv"])
	assert.Equal(t, []string{"Hello\nWorld"}, bySource["c.html"])
	assert.Equal(t, []string{"Heading\nSome emphasis here."}, bySource["d.md"])
	assert.Equal(t, []string{"b: 1", `a: {"x":[1,2]}`}, bySource["e.json"])
	require.Len(t, bySource["f.pdf"], 2)
	assert.Contains(t, bySource["f.pdf"][0], "Hello page one")
	assert.Contains(t, bySource["f.pdf"][1], "Second page")
	assert.NotContains(t, bySource, "image.png")

	assert.Contains(t, logs.String(), "unsupported file format")
	assert.Contains(t, logs.String(), "image.png")
}

func TestLoadDirectory_OnlyUnsupported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.docx", []byte("x"))
	docs, err := New().LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, err := New().LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	dir := t.TempDir()
	writeFile(t, dir, "broken.json", []byte(`{"a":`))
	_, err = New().LoadDirectory(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")

	dir = t.TempDir()
	writeFile(t, dir, "broken.pdf", []byte("not a pdf"))
	_, err = New().LoadDirectory(context.Background(), dir)
	assert.Error(t, err)
}

func TestWithExtractor(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "x.RST", []byte("hello"))
	writeFile(t, dir, "y.docx", []byte("skipped"))
	ld := New(WithExtractor(".rst", ExtractorFunc(extractText)))
	docs, err := ld.LoadDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "hello", docs[0].Content)
}

func TestExtractJSON_Shapes(t *testing.T) {
	docs, err := extractJSON("l.json", []byte(`[{"q": "a b"}, "plain", 3, [1, 2]]`))
	require.NoError(t, err)
	var got []string
	for _, d := range docs {
		got = append(got, d.Content)
	}
	assert.Equal(t, []string{`{"q":"a b"}`, "plain", "3", "[1,2]"}, got)

	docs, err = extractJSON("s.json", []byte(`"just a string"`))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "just a string", docs[0].Content)
}

func TestExtractPDF_Empty(t *testing.T) {
	_, err := extractPDF("e.pdf", nil)
	assert.Error(t, err)
}

func TestMarkdownText(t *testing.T) {
	src := []byte("Intro line\nwrapped.\n\n- one\n- two\n\n```\ncode here\n```\n\n<div>raw</div>\n\nSee <https://example.com>.\n")
	assert.Equal(t, "Intro line wrapped.\none\ntwo\ncode here\nSee https://example.com.", MarkdownText(src))
}
