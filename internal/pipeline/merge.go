package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/azhengyongqin/scholar-hub/internal/archive"
	"github.com/azhengyongqin/scholar-hub/internal/latex"
	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/retry"
)

// MergeParams 格式转换任务的请求参数快照（两个上传包的落盘路径）
type MergeParams struct {
	ContentArchive string `json:"content_archive"`
	FormatArchive  string `json:"format_archive"`
}

// RunMerge 执行 LaTeX 格式合并编排。
// 状态机：processing → completed | failed，单趟执行、无子阶段，
// 任何一步的异常都致命。步骤：
// 解压两个包 → 各自定位主文件 → 备份模板主文件 →
// 内容文件树覆盖到模板树 → 合并头部 → 合并文献声明 →
// 组装最终文档 → 打包产物。
func (e *Env) RunMerge(ctx context.Context, runID string, p MergeParams) {
	start := time.Now()
	log := logger.WithRunID(runID)

	ws, cleanup, err := e.workspace(runID)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "创建工作目录失败: "+err.Error())
		return
	}
	defer cleanup()

	contentDir := filepath.Join(ws, "content_src")
	formatDir := filepath.Join(ws, "format_template")

	e.Store.AppendLog(runID, "INFO: 正在解压内容论文包...")
	if err := archive.Extract(p.ContentArchive, contentDir); err != nil {
		e.fail(runID, model.RunKindMerge, start, "解压内容包失败: "+err.Error())
		return
	}
	e.Store.AppendLog(runID, "INFO: 正在解压格式模板包...")
	if err := archive.Extract(p.FormatArchive, formatDir); err != nil {
		e.fail(runID, model.RunKindMerge, start, "解压模板包失败: "+err.Error())
		return
	}

	contentMain, err := e.locateMainTex(ctx, contentDir)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "定位内容主文件失败: "+err.Error())
		return
	}
	formatMain, err := e.locateMainTex(ctx, formatDir)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "定位模板主文件失败: "+err.Error())
		return
	}
	e.Store.AppendLog(runID,
		"INFO: 内容主文件: "+mustRel(contentDir, contentMain),
		"INFO: 模板主文件: "+mustRel(formatDir, formatMain))

	// 备份模板主文件，原件必须可恢复
	if err := copyFile(formatMain, formatMain+".bak.tex"); err != nil {
		e.fail(runID, model.RunKindMerge, start, "备份模板主文件失败: "+err.Error())
		return
	}

	contentText, err := os.ReadFile(contentMain)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "读取内容主文件失败: "+err.Error())
		return
	}
	formatText, err := os.ReadFile(formatMain)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "读取模板主文件失败: "+err.Error())
		return
	}

	// 找不到 \section 也找不到 \input 属于输入错误，直接失败
	contentHeader, body, err := latex.SplitBody(string(contentText))
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, err.Error())
		return
	}

	e.Store.AppendLog(runID, "INFO: 正在复制内容文件到模板目录...")
	if err := overlayTree(contentDir, formatDir); err != nil {
		e.fail(runID, model.RunKindMerge, start, "复制内容文件失败: "+err.Error())
		return
	}

	e.Store.AppendLog(runID, "INFO: 正在合并文档头部（LLM）...")
	mergedHeader, err := e.mergeHeaders(ctx, latex.HeaderOf(string(formatText)), contentHeader)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "合并文档头部失败: "+err.Error())
		return
	}

	bibSection, newBody, err := e.mergeBibliography(ctx, runID, string(formatText), string(contentText), body)
	if err != nil {
		e.fail(runID, model.RunKindMerge, start, "合并文献声明失败: "+err.Error())
		return
	}
	body = newBody

	final := mergedHeader + "\n" + body + "\n" + bibSection + "\n\\end{document}\n"
	if err := os.WriteFile(formatMain, []byte(final), 0o644); err != nil {
		e.fail(runID, model.RunKindMerge, start, "写入合并结果失败: "+err.Error())
		return
	}

	artifact := filepath.Join(e.Cfg.Dirs.Outputs, runID+"_converted_paper.zip")
	e.Store.AppendLog(runID, "INFO: 正在打包结果...")
	if err := archive.ZipDir(formatDir, artifact); err != nil {
		e.fail(runID, model.RunKindMerge, start, "打包结果失败: "+err.Error())
		return
	}

	log.Info().Str("artifact", artifact).Msg("SUCCESS: 格式转换任务完成")
	e.Store.AppendLog(runID, "SUCCESS: 转换结果已打包: "+filepath.Base(artifact))
	e.complete(runID, model.RunKindMerge, start, artifact)
}

// locateMainTex 在解压目录中定位主 .tex 文件。
// 候选只有一个时即为主文件；多个时把目录树和每个候选的开头预览
// 交给模型裁决（带重试），模型给出的相对路径必须真实存在。
func (e *Env) locateMainTex(ctx context.Context, dir string) (string, error) {
	files, err := latex.FindTexFiles(dir)
	if err != nil {
		return "", err
	}

	switch len(files) {
	case 0:
		return "", ErrMainFileNotFound
	case 1:
		return files[0], nil
	}

	tree, err := latex.FileTree(dir)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("以下是一个 LaTeX 项目的目录结构和各 .tex 文件的开头内容。\n")
	b.WriteString("请判断哪一个是项目的主文件（包含 \\documentclass 和 \\begin{document} 的入口文件）。\n")
	b.WriteString("只输出主文件相对于项目根目录的路径，不要任何解释。\n\n")
	b.WriteString("目录结构:\n" + tree + "\n")
	for _, f := range files {
		rel := mustRel(dir, f)
		b.WriteString(fmt.Sprintf("--- %s ---\n%s\n\n", rel, latex.Preview(f, 300)))
	}

	answer, err := retry.Do("locate_main_tex", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: b.String(), Temperature: 0})
		})
	if err != nil {
		return "", err
	}

	chosen := strings.Trim(strings.TrimSpace(answer), "\"'` ")
	path := filepath.Join(dir, filepath.FromSlash(chosen))
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: 模型给出的路径不存在: %s", ErrMainFileNotFound, chosen)
	}
	return path, nil
}

// mergeHeaders 用模型合并两份头部：保留模板的版式命令，
// 拼入内容侧承载信息的声明（标题、作者、摘要、内容特有的宏包）。
func (e *Env) mergeHeaders(ctx context.Context, formatHeader, contentHeader string) (string, error) {
	prompt := fmt.Sprintf(`以下是两个 LaTeX 文档的头部（\documentclass 到正文之前的部分）。
请把"内容头部"中承载信息的声明（\title、\author、摘要、内容特有的宏包和自定义命令）
合并进"模板头部"，同时完整保留模板头部的文档类、版式和样式设置。
只输出合并后的完整头部 LaTeX 源码，不要任何解释，不要输出 \section 之后的内容。

=== 模板头部 ===
%s

=== 内容头部 ===
%s`, formatHeader, contentHeader)

	return retry.Do("merge_headers", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0})
		})
}

// mergeBibliography 合并文献声明。内容侧没有文献声明时整体跳过。
// 模板原有的声明注释后保留，新声明由模型按模板样式 + 内容数据文件合成。
// 返回文献小节文本和移除旧声明后的正文。
func (e *Env) mergeBibliography(ctx context.Context, runID, formatText, contentText, body string) (string, string, error) {
	contentBib := latex.BibLines(contentText)
	if len(contentBib) == 0 {
		e.Store.AppendLog(runID, "INFO: 内容文档没有文献声明，跳过文献合并")
		return "", body, nil
	}

	e.Store.AppendLog(runID, "INFO: 正在合并文献声明（LLM）...")
	formatBib := latex.BibLines(formatText)

	prompt := fmt.Sprintf(`以下是模板文档和内容文档中与参考文献相关的 LaTeX 声明行。
请合成新的文献声明：引用样式（\bibliographystyle）沿用模板的，
文献数据文件（\bibliography 的参数）使用内容侧的。
只输出合成后的声明行，不要任何解释。

=== 模板的文献声明 ===
%s

=== 内容的文献声明 ===
%s`, strings.Join(formatBib, "\n"), strings.Join(contentBib, "\n"))

	merged, err := retry.Do("merge_bibliography", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0})
		})
	if err != nil {
		return "", "", err
	}

	section := latex.CommentOut(formatBib) + merged + "\n"
	return section, latex.RemoveLines(body, contentBib), nil
}

// overlayTree 把 src 的全部文件复制进 dst，路径冲突时 src 覆盖。
func overlayTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func mustRel(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return path
	}
	return rel
}
