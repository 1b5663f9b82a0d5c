package arxiv

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

var (
	absLLM = `(abs:LLM OR abs:"Large Language Model")`
	absRL  = `(abs:RL OR abs:"Reinforcement Learning")`

	// specialPhrases 常用组合短语的定制查询，命中时拆成多个 abs 条件求交
	specialPhrases = map[string][]string{
		"large language model agent rl":         {absLLM, "abs:agent", absRL},
		"llm rft":                               {absLLM, "abs:RFT"},
		"llm reinforcement learning finetuning": {absLLM, absRL, "abs:Finetuning"},
		"large language model rl":               {absLLM, absRL},
	}
)

// BuildQuery 为关键词短语构建仅针对摘要字段 (abs) 的高级查询串。
func BuildQuery(phrase string) string {
	if parts, ok := specialPhrases[strings.ToLower(phrase)]; ok {
		return "(" + strings.Join(parts, " AND ") + ")"
	}
	escaped := strings.ReplaceAll(phrase, `"`, `\"`)
	return fmt.Sprintf(`(abs:"%s")`, escaped)
}

// KeywordPasses 生成分阶段放宽的检索批次。
// 关键词不超过 3 个时只有一个批次；超过 3 个时依次为：
// 全集 → 前 80% → 前 60% 加上余下关键词的随机单项补充。
// 各批次间的重叠按 EntryID 去重，属于既定策略，不做合并优化。
func KeywordPasses(keywords []string) [][]string {
	if len(keywords) <= 3 {
		return [][]string{keywords}
	}

	n := len(keywords)
	top80 := int(math.Ceil(float64(n) * 0.8))
	top60 := int(math.Ceil(float64(n) * 0.6))

	third := make([]string, 0, n)
	third = append(third, keywords[:top60]...)

	rest := make([]string, n-top60)
	copy(rest, keywords[top60:])
	rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	third = append(third, rest...)

	return [][]string{
		keywords,
		keywords[:top80],
		third,
	}
}
