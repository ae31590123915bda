package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

/////////////////////////////////////////////////////////////////////////////
// TOKEN
/////////////////////////////////////////////////////////////////////////////

// Token is either a text leaf (Type == "") or a named node wrapping further
// tokens. A node produced by a leaf rule holds exactly one text leaf.
type Token struct {
	Type    string
	Text    string
	Content []Token
}

// Leaf returns a text leaf.
func Leaf(text string) Token {
	return Token{Text: text}
}

// Node returns a named node wrapping content.
func Node(typ string, content ...Token) Token {
	return Token{Type: typ, Content: content}
}

func (t Token) IsLeaf() bool {
	return t.Type == ""
}

// Flatten concatenates every leaf below t, in order.
func (t Token) Flatten() string {
	if t.IsLeaf() {
		return t.Text
	}
	return Stream(t.Content).Text()
}

func (t Token) String() string {
	if t.IsLeaf() {
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("%s(%s)", t.Type, Stream(t.Content).String())
}

// MarshalJSON writes the offload wire format: a leaf is a JSON string and a
// node is {"type": ..., "content": ...}. Content made of a single leaf is
// written as a plain string.
func (t Token) MarshalJSON() ([]byte, error) {
	if t.IsLeaf() {
		return json.Marshal(t.Text)
	}

	var content any
	if len(t.Content) == 1 && t.Content[0].IsLeaf() {
		content = t.Content[0].Text
	} else {
		content = Stream(t.Content)
	}

	return json.Marshal(struct {
		Type    string `json:"type"`
		Content any    `json:"content"`
	}{t.Type, content})
}

func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty token")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Leaf(s)
		return nil
	}

	var raw struct {
		Type    string          `json:"type"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		return fmt.Errorf("token without type: %s", data)
	}

	content, err := unmarshalContent(raw.Content)
	if err != nil {
		return fmt.Errorf("token %q: %w", raw.Type, err)
	}

	*t = Node(raw.Type, content...)
	return nil
}

func unmarshalContent(data json.RawMessage) (Stream, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Stream{Leaf("")}, nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Stream{Leaf(s)}, nil
	case '[':
		var s Stream
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	default:
		var tok Token
		if err := json.Unmarshal(data, &tok); err != nil {
			return nil, err
		}
		return Stream{tok}, nil
	}
}

/////////////////////////////////////////////////////////////////////////////
// STREAM
/////////////////////////////////////////////////////////////////////////////

// Stream is an ordered sequence of tokens, the output of a tokenize call.
type Stream []Token

// Text concatenates all leaf text. For a tokenize result this is the input.
func (s Stream) Text() string {
	var sb strings.Builder
	s.writeText(&sb)
	return sb.String()
}

func (s Stream) writeText(sb *strings.Builder) {
	for _, t := range s {
		if t.IsLeaf() {
			sb.WriteString(t.Text)
			continue
		}
		Stream(t.Content).writeText(sb)
	}
}

func (s Stream) String() string {
	parts := make([]string, len(s))
	for i, t := range s {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Walk visits every node depth-first, pre-order. depth is 0 for top level
// nodes. Leaves are not visited.
func (s Stream) Walk(fn func(tok Token, depth int)) {
	s.walk(fn, 0)
}

func (s Stream) walk(fn func(tok Token, depth int), depth int) {
	for _, t := range s {
		if t.IsLeaf() {
			continue
		}
		fn(t, depth)
		Stream(t.Content).walk(fn, depth+1)
	}
}

/////////////////////////////////////////////////////////////////////////////
// TOKEN STATS
/////////////////////////////////////////////////////////////////////////////

type TokenStats struct {
	TotalTokens     int            `json:"total_tokens"`
	TotalLeaves     int            `json:"total_leaves"`
	TokensByType    map[string]int `json:"tokens_by_type"`
	MaxDepth        int            `json:"max_depth"`
	TotalTextLength int            `json:"total_text_length"`
	TokenizedLength int            `json:"tokenized_length"`
	TokenizedRatio  float64        `json:"tokenized_ratio"`
	Aborted         bool           `json:"aborted"`
}

// Stats computes token statistics for s. Text lengths are in runes.
func (s Stream) Stats() TokenStats {
	stats := TokenStats{
		TokensByType: make(map[string]int),
	}

	for _, t := range s {
		if t.IsLeaf() {
			stats.TotalLeaves++
			stats.TotalTextLength += len([]rune(t.Text))
			continue
		}
		n := len([]rune(t.Flatten()))
		stats.TotalTextLength += n
		stats.TokenizedLength += n
	}

	s.Walk(func(tok Token, depth int) {
		stats.TotalTokens++
		stats.TokensByType[tok.Type]++
		if depth+1 > stats.MaxDepth {
			stats.MaxDepth = depth + 1
		}
		for _, c := range tok.Content {
			if c.IsLeaf() {
				stats.TotalLeaves++
			}
		}
	})

	if stats.TotalTextLength > 0 {
		stats.TokenizedRatio = float64(stats.TokenizedLength) / float64(stats.TotalTextLength) * 100
	}

	return stats
}
