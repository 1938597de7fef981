package proguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLex(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected []Token
		wantErr  bool
	}{
		{
			name:  "directive and class",
			input: "-keep class com.a.B",
			expected: []Token{
				{Type: TokenDirective, Value: "-keep", Line: 1, Col: 1},
				{Type: TokenWord, Value: "class", Line: 1, Col: 7},
				{Type: TokenWord, Value: "com.a.B", Line: 1, Col: 13},
				{Type: TokenEOF, Line: 1, Col: 20},
			},
		},
		{
			name:  "modifiers and member block",
			input: "-keep,allowobfuscation class *{\n  int x;\n}",
			expected: []Token{
				{Type: TokenDirective, Value: "-keep", Line: 1, Col: 1},
				{Type: TokenPunct, Value: ",", Line: 1, Col: 6},
				{Type: TokenWord, Value: "allowobfuscation", Line: 1, Col: 7},
				{Type: TokenWord, Value: "class", Line: 1, Col: 24},
				{Type: TokenWord, Value: "*", Line: 1, Col: 30},
				{Type: TokenPunct, Value: "{", Line: 1, Col: 31},
				{Type: TokenWord, Value: "int", Line: 2, Col: 3},
				{Type: TokenWord, Value: "x", Line: 2, Col: 7},
				{Type: TokenPunct, Value: ";", Line: 2, Col: 8},
				{Type: TokenPunct, Value: "}", Line: 3, Col: 1},
				{Type: TokenEOF, Line: 3, Col: 2},
			},
		},
		{
			name:  "comments are skipped",
			input: "# header\n-dontobfuscate # trailing\n",
			expected: []Token{
				{Type: TokenDirective, Value: "-dontobfuscate", Line: 2, Col: 1},
				{Type: TokenEOF, Line: 3, Col: 1},
			},
		},
		{
			name:  "quoted name",
			input: `-printmapping 'out dir/mapping.txt'`,
			expected: []Token{
				{Type: TokenDirective, Value: "-printmapping", Line: 1, Col: 1},
				{Type: TokenWord, Value: "out dir/mapping.txt", Quoted: true, Line: 1, Col: 15},
				{Type: TokenEOF, Line: 1, Col: 36},
			},
		},
		{
			name:  "annotation and method",
			input: "@com.a.Keep *** get*(...);",
			expected: []Token{
				{Type: TokenPunct, Value: "@", Line: 1, Col: 1},
				{Type: TokenWord, Value: "com.a.Keep", Line: 1, Col: 2},
				{Type: TokenWord, Value: "***", Line: 1, Col: 13},
				{Type: TokenWord, Value: "get*", Line: 1, Col: 17},
				{Type: TokenPunct, Value: "(", Line: 1, Col: 21},
				{Type: TokenWord, Value: "...", Line: 1, Col: 22},
				{Type: TokenPunct, Value: ")", Line: 1, Col: 25},
				{Type: TokenPunct, Value: ";", Line: 1, Col: 26},
				{Type: TokenEOF, Line: 1, Col: 27},
			},
		},
		{
			name:    "unterminated quote",
			input:   "-include 'rules.pro\n",
			wantErr: true,
		},
		{
			name:    "unexpected character",
			input:   "-keep class A & B",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tokens, err := Lex(tt.input)
			if tt.wantErr {
				var se *SyntaxError
				require.ErrorAs(t, err, &se)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestLexErrorPosition(t *testing.T) {
	t.Parallel()

	_, err := Lex("-keep class A\n-keep class B & C")
	var se *SyntaxError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, 15, se.Col)
	assert.Equal(t, "&", se.Token)
	assert.Equal(t, `line 2 col 15: unexpected character near "&"`, err.Error())
}

func TestTokenTypeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Directive", TokenDirective.String())
	assert.Equal(t, "Unknown", TokenType(42).String())
}
