package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/azhengyongqin/scholar-hub/internal/arxiv"
	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/logger"
	"github.com/azhengyongqin/scholar-hub/internal/metrics"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/retry"
)

// SearchParams 文献搜索任务的请求参数快照
type SearchParams struct {
	Keywords       []string `json:"keywords"`
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	MaxResults     int      `json:"max_results"`
	TargetLanguage string   `json:"target_language,omitempty"`
}

// RunSearch 执行文献搜索与翻译编排。
// 状态机：processing → (translating) → completed | failed。
// 单个关键词的检索失败和单篇摘要的翻译失败都只降级、不致命；
// 日期解析失败和产物写盘失败才会把任务置为 failed。
func (e *Env) RunSearch(ctx context.Context, runID string, p SearchParams) {
	start := time.Now()
	log := logger.WithRunID(runID)

	ws, cleanup, err := e.workspace(runID)
	if err != nil {
		e.fail(runID, model.RunKindSearch, start, "创建工作目录失败: "+err.Error())
		return
	}
	defer cleanup()

	startDate, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		e.fail(runID, model.RunKindSearch, start, ErrBadDateRange.Error()+": "+p.StartDate)
		return
	}
	endDate, err := time.Parse("2006-01-02", p.EndDate)
	if err != nil {
		e.fail(runID, model.RunKindSearch, start, ErrBadDateRange.Error()+": "+p.EndDate)
		return
	}
	if endDate.Before(startDate) {
		e.fail(runID, model.RunKindSearch, start, ErrBadDateRange.Error())
		return
	}

	e.Store.AppendLog(runID, fmt.Sprintf("INFO: 开始检索，关键词 %d 个，日期范围 %s ~ %s",
		len(p.Keywords), p.StartDate, p.EndDate))

	papers := e.collectPapers(ctx, runID, p, startDate, endDate)
	e.Store.AppendLog(runID, fmt.Sprintf("INFO: 检索结束，去重后共 %d 篇论文", len(papers)))

	// 零结果是合法的成功结果：仍然产出只含表头的 CSV
	if len(papers) > 0 && p.TargetLanguage != "" {
		e.Store.SetStatus(runID, model.RunStatusTranslating)
		e.Store.AppendLog(runID, fmt.Sprintf("INFO: 开始翻译摘要（目标语言: %s）...", p.TargetLanguage))
		e.translateAbstracts(ctx, runID, papers, p.TargetLanguage)
		e.Store.AppendLog(runID, "INFO: 摘要翻译完成")
	}

	filename := ArtifactName(p.Keywords, p.StartDate, p.EndDate, p.TargetLanguage, len(papers))
	staging := filepath.Join(ws, filename)
	if err := writeCSV(staging, papers); err != nil {
		e.fail(runID, model.RunKindSearch, start, "写入结果文件失败: "+err.Error())
		return
	}

	final := filepath.Join(e.Cfg.Dirs.Outputs, filename)
	if err := os.Rename(staging, final); err != nil {
		e.fail(runID, model.RunKindSearch, start, "移动结果文件失败: "+err.Error())
		return
	}

	log.Info().Str("artifact", final).Msg("SUCCESS: 文献检索任务完成")
	e.Store.AppendLog(runID, "SUCCESS: 结果文件已生成: "+filename)
	e.complete(runID, model.RunKindSearch, start, final)
}

// collectPapers 按分阶段放宽的批次逐个关键词检索，按 EntryID 去重。
// 单个关键词失败只记 WARNING 并继续，调用之间加固定间隔礼让外部接口。
func (e *Env) collectPapers(ctx context.Context, runID string, p SearchParams, startDate, endDate time.Time) []arxiv.Paper {
	seen := map[string]bool{}
	var papers []arxiv.Paper

	dateFilter := fmt.Sprintf("submittedDate:[%s TO %s]",
		startDate.Format("200601020000"), endDate.Format("200601022359"))

	passes := arxiv.KeywordPasses(p.Keywords)
	for i, pass := range passes {
		if len(passes) > 1 {
			e.Store.AppendLog(runID, fmt.Sprintf("INFO: 第 %d/%d 轮检索（%d 个关键词）", i+1, len(passes), len(pass)))
		}

		for j, kw := range pass {
			if i > 0 || j > 0 {
				time.Sleep(e.Cfg.Search.PacingDelay)
			}

			query := arxiv.BuildQuery(kw) + " AND " + dateFilter
			found, err := retry.Do("arxiv_search", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
				func() ([]arxiv.Paper, error) {
					return e.Arxiv.Search(ctx, query, p.MaxResults)
				})
			if err != nil {
				metrics.RecordProviderError()
				e.Store.AppendLog(runID, fmt.Sprintf("WARNING: 关键词 %q 检索失败，跳过: %s", kw, err.Error()))
				continue
			}

			added := 0
			for _, paper := range found {
				if seen[paper.EntryID] {
					continue
				}
				seen[paper.EntryID] = true
				paper.Keyword = kw
				papers = append(papers, paper)
				added++
			}
			e.Store.AppendLog(runID, fmt.Sprintf("INFO: 关键词 %q 返回 %d 篇，新增 %d 篇", kw, len(found), added))
		}
	}
	return papers
}

// translateAbstracts 并发翻译摘要，同时在飞的调用数由信号量限制。
// 单篇翻译失败降级为译文字段里的错误标记，不影响其他条目。
func (e *Env) translateAbstracts(ctx context.Context, runID string, papers []arxiv.Paper, lang string) {
	sem := semaphore.NewWeighted(int64(e.Cfg.Search.MaxConcurrentTranslations))
	var wg sync.WaitGroup

	for i := range papers {
		if err := sem.Acquire(ctx, 1); err != nil {
			papers[i].SummaryTranslated = "翻译错误: " + err.Error()
			continue
		}

		wg.Add(1)
		go func(paper *arxiv.Paper) {
			defer wg.Done()
			defer sem.Release(1)

			prompt := fmt.Sprintf("请将以下论文摘要翻译成%s。只输出译文本身，不要任何解释或前缀。\n\n%s",
				lang, paper.SummaryEN)
			out, err := retry.Do("translate_abstract", e.Cfg.Retry.MaxAttempts, e.Cfg.Retry.Delay,
				func() (string, error) {
					return e.LLM.Complete(ctx, llm.Request{Prompt: prompt, Temperature: 0.3})
				})
			if err != nil {
				e.Store.AppendLog(runID, fmt.Sprintf("WARNING: 摘要翻译失败（%s）: %s", paper.EntryID, err.Error()))
				paper.SummaryTranslated = "翻译错误: " + err.Error()
				return
			}
			paper.SummaryTranslated = strings.TrimSpace(out)
		}(&papers[i])
	}
	wg.Wait()
}

var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-]+`)

// sanitizePart 把文件名片段收敛到字母、数字、下划线和连字符。
// 关键词和目标语言都来自客户端请求，落进文件名前必须清洗，
// 不允许任何路径分隔符或点号混入产物文件名。
func sanitizePart(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "-")
	return unsafeFilenameChars.ReplaceAllString(s, "")
}

// ArtifactName 由请求参数和结果数派生确定性的产物文件名。
// 相同参数、相同结果数的两次运行生成同名文件并互相覆盖，
// 这是沿用已久的产品行为，按已知限制对待。
func ArtifactName(keywords []string, startDate, endDate, lang string, count int) string {
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if s := sanitizePart(strings.ToLower(kw)); s != "" {
			parts = append(parts, s)
		}
	}
	topic := strings.Join(parts, "_")
	if topic == "" {
		topic = "all"
	}
	// 关键词很多时截断主题段，避免文件名超出文件系统限制
	if len(topic) > 80 {
		topic = topic[:80]
	}
	lang = sanitizePart(lang)
	if lang == "" {
		lang = "original"
	}
	return fmt.Sprintf("arxiv_papers_%s_%s_to_%s_%s_%d.csv", topic, startDate, endDate, lang, count)
}

// csvHeader 结果文件表头。列固定，未翻译时译文列留空。
var csvHeader = []string{"标题", "发表日期", "摘要（原文）", "摘要（译文）", "作者", "论文链接", "PDF链接", "命中关键词"}

func writeCSV(path string, papers []arxiv.Paper) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// UTF-8 BOM，Excel 打开中文表头不乱码
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range papers {
		row := []string{
			p.Title,
			p.Published.Format("2006-01-02"),
			p.SummaryEN,
			p.SummaryTranslated,
			strings.Join(p.Authors, "; "),
			p.EntryURL,
			p.PDFURL,
			p.Keyword,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
