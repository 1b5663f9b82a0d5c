package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Paper 一条检索结果。EntryID 是 arXiv 的稳定标识，
// 多轮检索的去重以它为准，而不是内容相似度。
type Paper struct {
	EntryID           string
	Title             string
	Published         time.Time
	SummaryEN         string
	SummaryTranslated string
	Authors           []string
	EntryURL          string
	PDFURL            string
	Keyword           string
}

// Client arXiv Atom API 客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient 创建 arXiv 客户端
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Atom feed 的最小映射
type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Published string       `xml:"published"`
	Summary   string       `xml:"summary"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
}

// Search 按提交时间倒序检索。maxResults 是本次调用向 API 请求的条数上限，
// 日期过滤由调用方完成。
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]Paper, error) {
	q := url.Values{}
	q.Set("search_query", query)
	q.Set("start", "0")
	q.Set("max_results", strconv.Itoa(maxResults))
	q.Set("sortBy", "submittedDate")
	q.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arXiv 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv 返回异常状态码: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("解析 arXiv Atom 响应失败: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		papers = append(papers, e.toPaper())
	}
	return papers, nil
}

func (e atomEntry) toPaper() Paper {
	p := Paper{
		EntryID:   strings.TrimSpace(e.ID),
		EntryURL:  strings.TrimSpace(e.ID),
		Title:     collapseSpace(e.Title),
		SummaryEN: collapseSpace(e.Summary),
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		p.Published = t
	}

	for _, a := range e.Authors {
		p.Authors = append(p.Authors, strings.TrimSpace(a.Name))
	}

	for _, l := range e.Links {
		if l.Title == "pdf" {
			p.PDFURL = l.Href
		}
	}

	return p
}

// collapseSpace 把换行和连续空白折叠为单个空格（Atom 字段带换行缩进）。
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
