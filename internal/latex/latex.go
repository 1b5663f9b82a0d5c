package latex

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoBodyMarker 主文件中找不到正文起点（既无 \section 也无 \input）
var ErrNoBodyMarker = errors.New("在主文件中未找到 `\\section` 或 `\\input` 作为正文起点")

// SplitBody 把主文件拆分为头部和正文。
// 正文起点取第一个 \section，找不到时退而使用第一个 \input；
// 两者都没有视为输入错误。正文在 \end{document} 之前截断。
func SplitBody(text string) (header, body string, err error) {
	idx := strings.Index(text, `\section`)
	if idx == -1 {
		idx = strings.Index(text, `\input`)
	}
	if idx == -1 {
		return "", "", ErrNoBodyMarker
	}

	header = text[:idx]

	end := strings.Index(text, `\end{document}`)
	if end == -1 || end < idx {
		end = len(text)
	}
	body = text[idx:end]
	return header, body, nil
}

// HeaderOf 取模板侧的头部：第一个 \section 之前的内容，没有则为全文。
func HeaderOf(text string) string {
	if idx := strings.Index(text, `\section`); idx != -1 {
		return text[:idx]
	}
	return text
}

// BibLines 提取文献相关声明行（\bibliography / \bibliographystyle 开头）。
func BibLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, `\bibliography`) || strings.HasPrefix(trimmed, `\bibliographystyle`) {
			out = append(out, line)
		}
	}
	return out
}

// CommentOut 把模板原有的文献声明整体注释掉，保留在产物中以便追溯。
func CommentOut(lines []string) string {
	var b strings.Builder
	b.WriteString("% ===== Automatically commented out by the conversion script =====\n")
	for _, line := range lines {
		b.WriteString("% ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RemoveLines 从正文中移除指定行（旧的文献声明并入新头部后不应残留）。
func RemoveLines(text string, lines []string) string {
	for _, line := range lines {
		text = strings.ReplaceAll(text, line+"\n", "")
		text = strings.ReplaceAll(text, line, "")
	}
	return text
}

// FindTexFiles 递归列出目录下的全部 .tex 文件，跳过 __MACOSX。
func FindTexFiles(dir string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "__MACOSX" {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".tex") {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// FileTree 生成缩进的目录树文本（用于让模型判断主文件）。
func FileTree(dir string) (string, error) {
	var b strings.Builder
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && d.Name() == "__MACOSX" {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			b.WriteString(filepath.Base(dir) + "/\n")
			return nil
		}

		depth := strings.Count(rel, string(os.PathSeparator)) + 1
		indent := strings.Repeat("    ", depth)
		if d.IsDir() {
			b.WriteString(fmt.Sprintf("%s%s/\n", indent, d.Name()))
		} else {
			b.WriteString(fmt.Sprintf("%s%s\n", indent, d.Name()))
		}
		return nil
	})
	return b.String(), err
}

// Preview 读取文件开头 n 个字节作为内容预览。
func Preview(path string, n int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	if len(data) > n {
		data = data[:n]
	}
	return string(data)
}
