package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/scholar-hub/internal/arxiv"
	"github.com/azhengyongqin/scholar-hub/internal/config"
	"github.com/azhengyongqin/scholar-hub/internal/llm"
	"github.com/azhengyongqin/scholar-hub/internal/model"
	"github.com/azhengyongqin/scholar-hub/internal/task"
)

// scriptedLLM 按脚本顺序返回响应的假模型客户端。
type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
	calls     []llm.Request
}

func (s *scriptedLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, req)
	if len(s.responses) == 0 {
		return "", errors.New("脚本响应已用尽")
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return out, nil
}

func testEnv(t *testing.T, client llm.Client) *Env {
	t.Helper()
	dataDir := t.TempDir()

	cfg := &config.Config{}
	cfg.Dirs.DataDir = dataDir
	cfg.Dirs.Uploads = filepath.Join(dataDir, "uploads")
	cfg.Dirs.Outputs = filepath.Join(dataDir, "outputs")
	cfg.Dirs.Workspace = filepath.Join(dataDir, "workspace")
	for _, d := range []string{cfg.Dirs.Uploads, cfg.Dirs.Outputs, cfg.Dirs.Workspace} {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	cfg.Retry.MaxAttempts = 2
	cfg.Retry.Delay = time.Millisecond
	cfg.Search.PacingDelay = time.Millisecond
	cfg.Search.MaxConcurrentTranslations = 2
	cfg.Style.GenerateRounds = 7
	cfg.Style.SelectCount = 4

	return &Env{
		Store: task.NewStore(),
		LLM:   client,
		Cfg:   cfg,
	}
}

func feedXML(ids ...string) string {
	var b bytes.Buffer
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom">`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<entry>
  <id>http://arxiv.org/abs/%s</id>
  <published>2024-01-01T12:00:00Z</published>
  <title>Paper %s</title>
  <summary>Abstract of %s.</summary>
  <author><name>Alice</name></author>
  <link href="http://arxiv.org/abs/%s" rel="alternate"/>
</entry>`, id, id, id, id)
	}
	b.WriteString(`</feed>`)
	return b.String()
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRunSearch_DeduplicatesAcrossKeywords(t *testing.T) {
	// 两个关键词都命中同一篇论文，产物中只应出现一行
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML("2401.00001v1")))
	}))
	defer srv.Close()

	env := testEnv(t, &scriptedLLM{})
	env.Arxiv = arxiv.NewClient(srv.URL, time.Second)

	rec := env.Store.Create(model.RunKindSearch, nil)
	env.RunSearch(context.Background(), rec.RunID, SearchParams{
		Keywords:   []string{"llm agents", "rl finetuning"},
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-31",
		MaxResults: 10,
	})

	got, ok := env.Store.Get(rec.RunID)
	require.True(t, ok)
	require.Equal(t, model.RunStatusCompleted, got.Status)

	rows := readCSV(t, got.OutputPath)
	require.Len(t, rows, 2, "表头 + 去重后的一行")
	assert.Equal(t, "Paper 2401.00001v1", rows[1][0])
}

func TestRunSearch_ZeroResultsCompletesWithHeaderOnlyArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML()))
	}))
	defer srv.Close()

	env := testEnv(t, &scriptedLLM{})
	env.Arxiv = arxiv.NewClient(srv.URL, time.Second)

	rec := env.Store.Create(model.RunKindSearch, nil)
	env.RunSearch(context.Background(), rec.RunID, SearchParams{
		Keywords:   []string{"nonexistent topic"},
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-02",
		MaxResults: 10,
	})

	got, ok := env.Store.Get(rec.RunID)
	require.True(t, ok)
	assert.Equal(t, model.RunStatusCompleted, got.Status, "零结果是合法的成功结果")

	rows := readCSV(t, got.OutputPath)
	require.Len(t, rows, 1, "只有表头行")
	assert.Equal(t, csvHeader, rows[0])
}

func TestRunSearch_ProviderFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	env := testEnv(t, &scriptedLLM{})
	env.Arxiv = arxiv.NewClient(srv.URL, time.Second)

	rec := env.Store.Create(model.RunKindSearch, nil)
	env.RunSearch(context.Background(), rec.RunID, SearchParams{
		Keywords:   []string{"a", "b"},
		StartDate:  "2024-01-01",
		EndDate:    "2024-01-02",
		MaxResults: 10,
	})

	got, _ := env.Store.Get(rec.RunID)
	assert.Equal(t, model.RunStatusCompleted, got.Status, "单个关键词失败只降级，不致命")

	warnings := 0
	for _, line := range got.Log {
		if strings.HasPrefix(line, "WARNING") {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings, "每个失败关键词各一条 WARNING")
}

func TestRunSearch_BadDateIsFatal(t *testing.T) {
	env := testEnv(t, &scriptedLLM{})

	rec := env.Store.Create(model.RunKindSearch, nil)
	env.RunSearch(context.Background(), rec.RunID, SearchParams{
		Keywords:  []string{"a"},
		StartDate: "01/01/2024",
		EndDate:   "2024-01-02",
	})

	got, _ := env.Store.Get(rec.RunID)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Log[len(got.Log)-1], "❌ FATAL_ERROR:")
}

func TestRunSearch_TranslatesAbstracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(feedXML("2401.00001v1")))
	}))
	defer srv.Close()

	client := &scriptedLLM{responses: []string{"这是中文译文"}}
	env := testEnv(t, client)
	env.Arxiv = arxiv.NewClient(srv.URL, time.Second)

	rec := env.Store.Create(model.RunKindSearch, nil)
	env.RunSearch(context.Background(), rec.RunID, SearchParams{
		Keywords:       []string{"llm"},
		StartDate:      "2024-01-01",
		EndDate:        "2024-01-31",
		MaxResults:     10,
		TargetLanguage: "中文",
	})

	got, _ := env.Store.Get(rec.RunID)
	require.Equal(t, model.RunStatusCompleted, got.Status)

	rows := readCSV(t, got.OutputPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "这是中文译文", rows[1][3])
	assert.Contains(t, got.Log, "INFO: 摘要翻译完成")
}

func TestArtifactName_Deterministic(t *testing.T) {
	a := ArtifactName([]string{"LLM Agents", "RL"}, "2024-01-01", "2024-01-31", "中文", 12)
	b := ArtifactName([]string{"LLM Agents", "RL"}, "2024-01-01", "2024-01-31", "中文", 12)
	assert.Equal(t, a, b, "相同参数相同结果数必须得到相同文件名")
	assert.Equal(t, "arxiv_papers_llm-agents_rl_2024-01-01_to_2024-01-31_中文_12.csv", a)

	c := ArtifactName(nil, "2024-01-01", "2024-01-31", "", 0)
	assert.Equal(t, "arxiv_papers_all_2024-01-01_to_2024-01-31_original_0.csv", c)
}

func TestArtifactName_SanitizesUnsafeParts(t *testing.T) {
	// 目标语言来自客户端请求，带路径分隔符的值不得逃出输出目录
	got := ArtifactName([]string{"llm"}, "2024-01-01", "2024-01-02", "../../escape", 0)
	assert.Equal(t, "arxiv_papers_llm_2024-01-01_to_2024-01-02_escape_0.csv", got)
	assert.Equal(t, filepath.Base(got), got, "文件名不得包含路径分隔符")

	got = ArtifactName([]string{"../rl"}, "2024-01-01", "2024-01-02", `..\..\evil`, 0)
	assert.NotContains(t, got, "/")
	assert.NotContains(t, got, `\`)
	assert.NotContains(t, got, "..")

	// 清洗后为空的语言段回退到 original
	got = ArtifactName([]string{"llm"}, "2024-01-01", "2024-01-02", "/.//", 0)
	assert.Contains(t, got, "_original_0.csv")
}

func TestRunStyle_Standard(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`["版本一", "版本二", "版本三"]`,
		"建议：再精炼一些。",
	}}
	env := testEnv(t, client)

	rec := env.Store.Create(model.RunKindStyle, nil)
	env.RunStyle(context.Background(), rec.RunID, StyleParams{
		OriginalText: "原始文本",
		Mode:         StyleModeStandard,
	})

	got, _ := env.Store.Get(rec.RunID)
	require.Equal(t, model.RunStatusCompleted, got.Status)
	require.NotNil(t, got.Result)
	assert.Equal(t, []string{"版本一", "版本二", "版本三"}, got.Result.Texts)
	assert.Equal(t, "建议：再精炼一些。", got.Result.Suggestions)
}

func TestRunStyle_StandardNonListIsFatal(t *testing.T) {
	// 重试两次都返回非列表内容，之后建议调用不应发生
	client := &scriptedLLM{responses: []string{"这不是列表", "这也不是列表"}}
	env := testEnv(t, client)

	rec := env.Store.Create(model.RunKindStyle, nil)
	env.RunStyle(context.Background(), rec.RunID, StyleParams{
		OriginalText: "原始文本",
		Mode:         StyleModeStandard,
	})

	got, _ := env.Store.Get(rec.RunID)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Nil(t, got.Result)
	assert.Contains(t, got.Log[len(got.Log)-1], "❌ FATAL_ERROR:")
}

func TestRunStyle_ElevatedSelection(t *testing.T) {
	responses := []string{"候选1", "候选2", "候选3", "候选4", "候选5", "候选6", "候选7"}
	responses = append(responses, `["候选3", "候选5", "候选1", "候选7"]`, "建议文本")
	env := testEnv(t, &scriptedLLM{responses: responses})

	rec := env.Store.Create(model.RunKindStyle, nil)
	env.RunStyle(context.Background(), rec.RunID, StyleParams{
		OriginalText: "原始文本",
		Mode:         StyleModeElevated,
	})

	got, _ := env.Store.Get(rec.RunID)
	require.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, []string{"候选3", "候选5", "候选1", "候选7"}, got.Result.Texts)
}

func TestRunStyle_ElevatedIndexRecovery(t *testing.T) {
	responses := []string{"候选1", "候选2", "候选3", "候选4", "候选5", "候选6", "候选7"}
	responses = append(responses, `选这几个: [2, 5, 1, 6]`, "建议文本")
	env := testEnv(t, &scriptedLLM{responses: responses})

	rec := env.Store.Create(model.RunKindStyle, nil)
	env.RunStyle(context.Background(), rec.RunID, StyleParams{
		OriginalText: "原始文本",
		Mode:         StyleModeElevated,
	})

	got, _ := env.Store.Get(rec.RunID)
	require.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, []string{"候选2", "候选5", "候选1", "候选6"}, got.Result.Texts,
		"序号列表按 1 起始恢复")
}

func TestRunStyle_ElevatedFallsBackToFirstFour(t *testing.T) {
	responses := []string{"候选1", "候选2", "候选3", "候选4", "候选5", "候选6", "候选7"}
	// 挑选响应既不是字符串列表也不是序号列表
	responses = append(responses, "完全无法解析的响应", "建议文本")
	env := testEnv(t, &scriptedLLM{responses: responses})

	rec := env.Store.Create(model.RunKindStyle, nil)
	env.RunStyle(context.Background(), rec.RunID, StyleParams{
		OriginalText: "原始文本",
		Mode:         StyleModeElevated,
	})

	got, _ := env.Store.Get(rec.RunID)
	require.Equal(t, model.RunStatusCompleted, got.Status)
	assert.Equal(t, []string{"候选1", "候选2", "候选3", "候选4"}, got.Result.Texts,
		"兜底取按生成顺序的前 4 个")
}
