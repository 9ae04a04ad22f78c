package lexer

import (
	"testing"

	"github.com/funvibe/lumen/internal/token"
)

func scanAll(source string) []token.Token {
	l := New(source)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func TestNextTokenPunctuationAndOperators(t *testing.T) {
	tokens := scanAll("(){};,.+-*/!!====<<=>>=")
	want := []token.Type{
		token.LEFT_PAREN, token.RIGHT_PAREN, token.LEFT_BRACE, token.RIGHT_BRACE,
		token.SEMICOLON, token.COMMA, token.DOT, token.PLUS, token.MINUS,
		token.STAR, token.SLASH, token.BANG, token.BANG_EQUAL, token.EQUAL_EQUAL,
		token.EQUAL, token.LESS, token.LESS_EQUAL, token.GREATER, token.GREATER_EQUAL, token.EOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %+v", len(tokens), len(want), tokens)
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Fatalf("token %d: got %s, want %s", i, tok.Type, want[i])
		}
	}
}

func TestNextTokenKeywords(t *testing.T) {
	tokens := scanAll("and break class const continue else false for fun if nil or print return super this true var while")
	want := []token.Type{
		token.AND, token.BREAK, token.CLASS, token.CONST, token.CONTINUE, token.ELSE,
		token.FALSE, token.FOR, token.FUN, token.IF, token.NIL, token.OR, token.PRINT,
		token.RETURN, token.SUPER, token.THIS, token.TRUE, token.VAR, token.WHILE,
		token.EOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i, tok := range tokens {
		if tok.Type != want[i] {
			t.Fatalf("token %d (%q): got %s, want %s", i, tok.Lexeme, tok.Type, want[i])
		}
	}
}

func TestNextTokenNumbersAndStrings(t *testing.T) {
	tokens := scanAll(`123 3.14 "hello world"`)
	if len(tokens) != 4 {
		t.Fatalf("got %d tokens, want 4: %+v", len(tokens), tokens)
	}
	if tokens[0].Type != token.NUMBER || tokens[0].Lexeme != "123" {
		t.Fatalf("got %+v", tokens[0])
	}
	if tokens[1].Type != token.NUMBER || tokens[1].Lexeme != "3.14" {
		t.Fatalf("got %+v", tokens[1])
	}
	if tokens[2].Type != token.STRING || tokens[2].Lexeme != `"hello world"` {
		t.Fatalf("got %+v", tokens[2])
	}
}

func TestNextTokenUnterminatedString(t *testing.T) {
	tokens := scanAll(`"unterminated`)
	if tokens[0].Type != token.ERROR {
		t.Fatalf("expected an error token, got %+v", tokens[0])
	}
}

func TestNextTokenSkipsLineCommentsAndTracksLines(t *testing.T) {
	tokens := scanAll("var a = 1; // a comment\nvar b = 2;")
	var varLines []int
	for _, tok := range tokens {
		if tok.Type == token.VAR {
			varLines = append(varLines, tok.Line)
		}
	}
	if len(varLines) != 2 || varLines[0] != 1 || varLines[1] != 2 {
		t.Fatalf("got var lines %v, want [1 2]", varLines)
	}
}

func TestNextTokenIdentifierVsKeyword(t *testing.T) {
	tokens := scanAll("classroom class")
	if tokens[0].Type != token.IDENTIFIER || tokens[0].Lexeme != "classroom" {
		t.Fatalf("got %+v, want identifier classroom", tokens[0])
	}
	if tokens[1].Type != token.CLASS {
		t.Fatalf("got %+v, want CLASS", tokens[1])
	}
}
