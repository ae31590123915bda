package types

// Tokenizer turns text into a token stream.
type Tokenizer interface {
	Tokenize(text string) Stream
}

// Request is the offload protocol request: a language name and source text.
type Request struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Response is the offload protocol response: the serialized token tree.
type Response = Stream
