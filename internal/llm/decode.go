package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*\n")
	fenceClose = regexp.MustCompile("\n```\\s*$")
)

// StripFences 去掉模型响应首尾的 Markdown 代码围栏（```json、```latex 等）。
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// DecodeStringList 把模型输出解析为字符串列表。
// 直接解析失败时做一次挽救：截取第一个 '[' 到最后一个 ']' 的子串重试。
func DecodeStringList(content string) ([]string, error) {
	content = StripFences(content)

	var out []string
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out, nil
	}

	salvaged, ok := bracketSubstring(content)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMalformedList, head(content, 200))
	}
	if err := json.Unmarshal([]byte(salvaged), &out); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedList, head(content, 200))
	}
	return out, nil
}

// DecodeIntList 把模型输出解析为整数列表（候选序号恢复用）。
func DecodeIntList(content string) ([]int, error) {
	content = StripFences(content)

	var out []int
	if err := json.Unmarshal([]byte(content), &out); err == nil {
		return out, nil
	}

	salvaged, ok := bracketSubstring(content)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMalformedList, head(content, 200))
	}
	if err := json.Unmarshal([]byte(salvaged), &out); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedList, head(content, 200))
	}
	return out, nil
}

// bracketSubstring 截取第一个 '[' 到最后一个 ']' 之间的子串。
func bracketSubstring(s string) (string, bool) {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
