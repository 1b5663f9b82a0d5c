package latex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `\documentclass{article}
\usepackage{amsmath}
\begin{document}
\section{Introduction}
Intro text.
\bibliographystyle{plain}
\bibliography{refs}
\end{document}
`

func TestSplitBody_Section(t *testing.T) {
	header, body, err := SplitBody(sampleDoc)
	require.NoError(t, err)

	assert.Contains(t, header, `\documentclass{article}`)
	assert.NotContains(t, header, `\section`)
	assert.Contains(t, body, `\section{Introduction}`)
	assert.NotContains(t, body, `\end{document}`, "正文不包含文档结束标记")
}

func TestSplitBody_InputFallback(t *testing.T) {
	doc := `\documentclass{article}
\begin{document}
\input{chapters/ch1}
\end{document}
`
	header, body, err := SplitBody(doc)
	require.NoError(t, err)
	assert.Contains(t, header, `\begin{document}`)
	assert.Contains(t, body, `\input{chapters/ch1}`)
}

func TestSplitBody_PrefersSectionOverInput(t *testing.T) {
	doc := `\documentclass{article}
\input{macros}
\begin{document}
\section{One}
Body.
\end{document}
`
	// \input 出现在 \section 之前也不影响：先找 \section
	header, _, err := SplitBody(doc)
	require.NoError(t, err)
	assert.Contains(t, header, `\input{macros}`)
}

func TestSplitBody_NoMarker(t *testing.T) {
	_, _, err := SplitBody(`\documentclass{article}\begin{document}hi\end{document}`)
	assert.ErrorIs(t, err, ErrNoBodyMarker)
}

func TestHeaderOf(t *testing.T) {
	assert.Equal(t, "\\documentclass{article}\n", HeaderOf("\\documentclass{article}\n\\section{A}"))
	assert.Equal(t, "no sections here", HeaderOf("no sections here"))
}

func TestBibLines(t *testing.T) {
	lines := BibLines(sampleDoc)
	require.Len(t, lines, 2)
	assert.Equal(t, `\bibliographystyle{plain}`, lines[0])
	assert.Equal(t, `\bibliography{refs}`, lines[1])

	assert.Empty(t, BibLines(`\section{A} text`))
}

func TestCommentOut(t *testing.T) {
	out := CommentOut([]string{`\bibliography{refs}`})
	assert.Contains(t, out, `% \bibliography{refs}`)
}

func TestRemoveLines(t *testing.T) {
	body := "line one\n\\bibliography{refs}\nline two\n"
	out := RemoveLines(body, []string{`\bibliography{refs}`})
	assert.NotContains(t, out, `\bibliography{refs}`)
	assert.Contains(t, out, "line one")
	assert.Contains(t, out, "line two")
}

func TestFindTexFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sections"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__MACOSX"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sections", "s1.tex"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__MACOSX", "junk.tex"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refs.bib"), []byte("x"), 0o644))

	files, err := FindTexFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Contains(t, files, filepath.Join(dir, "main.tex"))
	assert.Contains(t, files, filepath.Join(dir, "sections", "s1.tex"))
}

func TestFileTree(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "figs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "figs", "f.pdf"), []byte("x"), 0o644))

	tree, err := FileTree(dir)
	require.NoError(t, err)
	assert.Contains(t, tree, "main.tex")
	assert.Contains(t, tree, "figs/")
	assert.Contains(t, tree, "f.pdf")
}

func TestPreview(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.tex")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	assert.Equal(t, "01234", Preview(path, 5))
	assert.Equal(t, "0123456789", Preview(path, 100))
	assert.Empty(t, Preview(filepath.Join(dir, "missing.tex"), 5))
}
