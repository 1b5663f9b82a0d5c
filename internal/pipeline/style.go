package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/retry"
)

// 润色模式
const (
	StyleModeStandard = "standard"
	StyleModeElevated = "elevated"
)

// StyleParams 文本润色任务的请求参数快照
type StyleParams struct {
	OriginalText      string   `json:"original_text"`
	MustInclude       []string `json:"must_include,omitempty"`
	ReferenceKeywords []string `json:"reference_keywords,omitempty"`
	StyleRequirements string   `json:"style_requirements,omitempty"`
	StyleExample      string   `json:"style_example,omitempty"`
	Mode              string   `json:"mode"`
}

// RunStyle 执行文本润色编排。
// 标准模式一次生成 3-5 个候选；进阶模式连续生成 7 个候选后
// 让模型从中挑出 4 个，挑选结果畸形时逐级回退，绝不因此失败。
// 两种模式最后都再要一段改进建议。
func (e *Env) RunStyle(ctx context.Context, runID string, p StyleParams) {
	start := time.Now()
	log := logger.WithRunID(runID)

	var texts []string
	var err error
	switch p.Mode {
	case StyleModeElevated:
		texts, err = e.styleElevated(ctx, runID, p)
	default:
		texts, err = e.styleStandard(ctx, runID, p)
	}
	if err != nil {
		e.fail(runID, model.RunKindStyle, start, "生成候选文本失败: "+err.Error())
		return
	}

	e.Store.AppendLog(runID, "INFO: 正在生成改进建议...")
	suggestions, err := e.styleSuggestions(ctx, p, texts)
	if err != nil {
		e.fail(runID, model.RunKindStyle, start, "生成改进建议失败: "+err.Error())
		return
	}

	log.Info().Int("texts", len(texts)).Msg("SUCCESS: 文本润色任务完成")
	e.Store.AppendLog(runID, fmt.Sprintf("SUCCESS: 润色完成，共 %d 个候选", len(texts)))
	e.Store.CompleteResult(runID, &model.StyleResult{Texts: texts, Suggestions: suggestions})
	metrics.RecordRunCompleted(string(model.RunKindStyle), string(model.RunStatusCompleted), time.Since(start).Seconds())
}

// styleStandard 单次调用生成候选列表。返回内容不是列表即致命。
func (e *Env) styleStandard(ctx context.Context, runID string, p StyleParams) ([]string, error) {
	e.Store.AppendLog(runID, "INFO: 正在生成候选文本（标准模式）...")

	prompt := p.requirementsBlock() + `
请基于以上要求，对原文做 3 到 5 个不同方向的改写。
输出一个 JSON 字符串数组，每个元素是一个完整的改写版本，不要任何其他内容。`

	raw, err := retry.Do("style_generate", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0.8})
		})
	if err != nil {
		return nil, err
	}

	texts, err := llm.DecodeStringList(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAList, err.Error())
	}
	e.Store.AppendLog(runID, fmt.Sprintf("INFO: 已生成 %d 个候选文本", len(texts)))
	return texts, nil
}

// styleElevated 进阶模式：逐个生成候选（每次都告知已有候选并要求差异化），
// 再让模型挑出最优的若干个。挑选响应的三级回退：
// 合法字符串列表 → 按 1 起始的序号列表恢复 → 按生成顺序取前几个。
func (e *Env) styleElevated(ctx context.Context, runID string, p StyleParams) ([]string, error) {
	rounds := e.Cfg.Style.GenerateRounds
	selectN := e.Cfg.Style.SelectCount

	candidates := make([]string, 0, rounds)
	for i := 1; i <= rounds; i++ {
		e.Store.AppendLog(runID, fmt.Sprintf("INFO: 正在生成候选文本 %d/%d（进阶模式）...", i, rounds))

		var b strings.Builder
		b.WriteString(p.requirementsBlock())
		if len(candidates) > 0 {
			b.WriteString("\n已有的候选版本如下，你的新版本必须在措辞和结构上与它们明显不同：\n")
			for j, c := range candidates {
				b.WriteString(fmt.Sprintf("候选 %d: %s\n", j+1, c))
			}
		}
		b.WriteString("\n请输出一个全新的改写版本。只输出改写后的文本本身，不要编号、不要解释。")

		out, err := retry.Do("style_generate_one", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
			func() (string, error) {
				return e.LLM.Complete(ctx, llm.Request{Prompt: b.String(), Temperature: 0.9})
			})
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, strings.TrimSpace(out))
	}

	e.Store.AppendLog(runID, fmt.Sprintf("INFO: 正在从 %d 个候选中挑选最优 %d 个...", rounds, selectN))
	selected := e.selectCandidates(ctx, runID, candidates, selectN)
	return selected, nil
}

// selectCandidates 让模型挑选候选，响应畸形时逐级回退，永不报错。
func (e *Env) selectCandidates(ctx context.Context, runID string, candidates []string, selectN int) []string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("以下是 %d 个候选改写版本。请挑出质量最高、彼此差异最大的 %d 个。\n",
		len(candidates), selectN))
	b.WriteString("输出一个 JSON 字符串数组，元素为选中版本的完整文本，不要任何其他内容。\n\n")
	for i, c := range candidates {
		b.WriteString(fmt.Sprintf("候选 %d: %s\n\n", i+1, c))
	}

	raw, err := retry.Do("style_select", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: b.String(), Temperature: 0.2})
		})
	if err != nil {
		e.Store.AppendLog(runID, "WARNING: 挑选调用失败，回退为按生成顺序取前几个候选")
		return candidates[:selectN]
	}

	// 第一级：合法的字符串列表，取前 selectN 个
	if texts, err := llm.DecodeStringList(raw); err == nil && len(texts) >= selectN {
		return texts[:selectN]
	}

	// 第二级：响应可能是候选序号列表（1 起始）
	if indices, err := llm.DecodeIntList(raw); err == nil {
		recovered := make([]string, 0, selectN)
		for _, idx := range indices {
			if idx >= 1 && idx <= len(candidates) {
				recovered = append(recovered, candidates[idx-1])
			}
		}
		if len(recovered) >= selectN {
			e.Store.AppendLog(runID, "INFO: 挑选响应按候选序号恢复成功")
			return recovered[:selectN]
		}
	}

	// 第三级：确定性回退，按生成顺序取前 selectN 个
	e.Store.AppendLog(runID, "WARNING: 挑选响应格式异常，回退为按生成顺序取前几个候选")
	return candidates[:selectN]
}

// styleSuggestions 基于原始要求和最终候选集生成自由文本的改进建议。
func (e *Env) styleSuggestions(ctx context.Context, p StyleParams, texts []string) (string, error) {
	var b strings.Builder
	b.WriteString(p.requirementsBlock())
	b.WriteString("\n最终的改写候选如下：\n")
	for i, t := range texts {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, t))
	}
	b.WriteString("\n请针对这些候选给出进一步改进的建议，面向最终用户，自由文本即可。")

	out, err := retry.Do("style_suggestions", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
		func() (string, error) {
			return e.LLM.Complete(ctx, llm.Request{Prompt: b.String(), Temperature: 0.5})
		})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// requirementsBlock 把请求参数拼成提示词的公共需求部分。
func (p StyleParams) requirementsBlock() string {
	var b strings.Builder
	b.WriteString("原文：\n" + p.OriginalText + "\n")
	if len(p.MustInclude) > 0 {
		b.WriteString("\n改写必须包含以下关键词：" + strings.Join(p.MustInclude, "、") + "\n")
	}
	if len(p.ReferenceKeywords) > 0 {
		b.WriteString("\n可参考的主题关键词：" + strings.Join(p.ReferenceKeywords, "、") + "\n")
	}
	if p.StyleRequirements != "" {
		b.WriteString("\n风格要求：" + p.StyleRequirements + "\n")
	}
	if p.StyleExample != "" {
		b.WriteString("\n风格示例：\n" + p.StyleExample + "\n")
	}
	return b.String()
}
