package grammar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		lit       string
		wantSrc   string
		wantFlags string
	}{
		{`/a+b/`, `a+b`, ``},
		{`/<!--[\w\W]*?-->/gi`, `<!--[\w\W]*?-->`, `gi`},
		{`/\/\*[\w\W]*?\*\//g`, `\/\*[\w\W]*?\*\/`, `g`},
		{`a+b`, `a+b`, ``},
		{`/not flags/xyz`, `/not flags/xyz`, ``},
	}

	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			p, err := ParseLiteral(tt.lit)
			require.NoError(t, err)
			require.Equal(t, tt.wantSrc, p.Source())
			require.Equal(t, tt.wantFlags, p.Flags())
		})
	}
}

func TestCompile_Errors(t *testing.T) {
	_, err := Compile(`a(`, "")
	require.True(t, errors.Is(err, ErrInvalidPattern), "got %v", err)

	_, err = Compile(`a`, "q")
	require.True(t, errors.Is(err, ErrInvalidPattern), "got %v", err)
}

func TestPattern_Match(t *testing.T) {
	tests := []struct {
		name  string
		lit   string
		text  string
		want  Match
		found bool
	}{
		{"simple", `/\d+/`, "ab12c", Match{Index: 2, Length: 2}, true},
		{"no match", `/\d+/`, "abc", Match{}, false},
		{"ignore case", `/VAR/i`, "a var", Match{Index: 2, Length: 3}, true},
		{"lookahead", `/[a-z]+(?=\s*:)/`, "x color :", Match{Index: 2, Length: 5}, true},
		{"back reference", `/("|')(\\?.)*?\1/`, `say 'hi' now`, Match{Index: 4, Length: 4, Group1: 1}, true},
		{"group 1 unused", `/(x)?y/`, "ay", Match{Index: 1, Length: 1}, true},
		{"runes not bytes", `/b/`, "éb", Match{Index: 1, Length: 1}, true},
		{"anchor is fragment start", `/^a/`, "ba", Match{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := MustLiteral(tt.lit).Match([]rune(tt.text))
			require.Equal(t, tt.found, ok)
			require.Equal(t, tt.want, m)
		})
	}
}

func TestBrokenPattern_NeverMatches(t *testing.T) {
	_, err := ParseLiteral(`/a(/`)
	require.Error(t, err)

	p := brokenPattern(`/a(/`, err)
	require.Equal(t, "/a(/", p.String())
	require.ErrorIs(t, p.Err(), ErrInvalidPattern)

	_, ok := p.Match([]rune("a("))
	require.False(t, ok)
}
