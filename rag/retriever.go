// Package rag provides the optional retrieval collaborator: a document
// chunker and an in-memory keyword retriever that workers use to pull
// schema/context passages into their prompts. Embedding-based stores are an
// external concern; the engine only requires the Retriever contract.
package rag

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Retriever 检索接口
// 返回拼接后的 top-k 相关片段；语料为空时返回空串而非错误。
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (string, error)
}

// 与原系统的文档切分参数保持一致。
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// splitSeparators 分隔符优先级：段落 > 行 > 句子 > 单词 > 字符
var splitSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// SplitText 递归字符切分
// 依次尝试分隔符，把文本切成不超过 size 的块，相邻块保留 overlap 重叠。
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	pieces := recursiveSplit(text, splitSeparators, size)

	// Merge pieces into chunks up to size, carrying overlap between chunks.
	var chunks []string
	var cur strings.Builder
	for _, p := range pieces {
		if cur.Len() > 0 && cur.Len()+len(p) > size {
			chunk := cur.String()
			chunks = append(chunks, chunk)
			cur.Reset()
			if overlap > 0 && len(chunk) > overlap {
				cur.WriteString(chunk[len(chunk)-overlap:])
			}
		}
		cur.WriteString(p)
	}
	if strings.TrimSpace(cur.String()) != "" {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func recursiveSplit(text string, separators []string, size int) []string {
	if len(text) <= size {
		return []string{text}
	}
	if len(separators) == 0 {
		// Hard split as the last resort.
		var out []string
		for len(text) > size {
			out = append(out, text[:size])
			text = text[size:]
		}
		if text != "" {
			out = append(out, text)
		}
		return out
	}

	sep := separators[0]
	rest := separators[1:]
	if sep == "" {
		return recursiveSplit(text, nil, size)
	}

	parts := strings.SplitAfter(text, sep)
	var out []string
	for _, part := range parts {
		if len(part) > size {
			out = append(out, recursiveSplit(part, rest, size)...)
		} else if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// KeywordRetriever 内存关键词检索器
// 不依赖 LLM 和向量库：按查询词与块的词重叠度打分取 top-k，
// 适用于本地开发、测试和不需要嵌入调用的场景。
type KeywordRetriever struct {
	mu     sync.RWMutex
	chunks []string
	logger *zap.Logger
}

// NewKeywordRetriever creates an empty in-memory retriever.
func NewKeywordRetriever(logger *zap.Logger) *KeywordRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KeywordRetriever{
		logger: logger.With(zap.String("component", "keyword_retriever")),
	}
}

// AddDocument chunks the document and adds its chunks to the corpus.
func (r *KeywordRetriever) AddDocument(text string) {
	chunks := SplitText(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return
	}
	r.mu.Lock()
	r.chunks = append(r.chunks, chunks...)
	total := len(r.chunks)
	r.mu.Unlock()

	r.logger.Debug("document indexed",
		zap.Int("new_chunks", len(chunks)),
		zap.Int("total_chunks", total),
	)
}

// Retrieve returns the top-k chunks by keyword overlap joined with "\n\n".
func (r *KeywordRetriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if k <= 0 {
		k = 3
	}

	r.mu.RLock()
	chunks := r.chunks
	r.mu.RUnlock()
	if len(chunks) == 0 {
		return "", nil
	}

	queryTokens := tokenize(query)
	type scored struct {
		idx   int
		score int
	}
	results := make([]scored, 0, len(chunks))
	for i, chunk := range chunks {
		s := overlapScore(queryTokens, tokenize(chunk))
		if s > 0 {
			results = append(results, scored{idx: i, score: s})
		}
	}
	if len(results) == 0 {
		return "", nil
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
	if len(results) > k {
		results = results[:k]
	}

	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = strings.TrimSpace(chunks[res.idx])
	}
	return strings.Join(parts, "\n\n"), nil
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, ".,;:!?()[]{}\"'`")
		if len(tok) > 2 {
			out[tok] = struct{}{}
		}
	}
	return out
}

func overlapScore(query, chunk map[string]struct{}) int {
	score := 0
	for tok := range query {
		if _, ok := chunk[tok]; ok {
			score++
		}
	}
	return score
}
