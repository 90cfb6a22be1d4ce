// Package lexer converts LMN source bytes into a linear token stream.
package lexer

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmn-vm/lmn/internal/token"
)

// ASCII classification tables, built once so the hot scanning loop never
// branches on character class through a chain of comparisons.
var (
	isDigit      [128]bool
	isUpperStart [128]bool // [A-Z_]
	isUpperPart  [128]bool // [A-Z0-9_]
	isLowerStart [128]bool // [a-z_]
	isLowerPart  [128]bool // [a-z0-9_]
	isSymbolByte [128]bool // one of < > = !
	isSpace      [128]bool
)

func init() {
	for i := 0; i < 128; i++ {
		ch := byte(i)
		isDigit[i] = ch >= '0' && ch <= '9'
		isUpperStart[i] = (ch >= 'A' && ch <= 'Z') || ch == '_'
		isUpperPart[i] = isUpperStart[i] || isDigit[i]
		isLowerStart[i] = (ch >= 'a' && ch <= 'z') || ch == '_'
		isLowerPart[i] = isLowerStart[i] || isDigit[i]
		isSymbolByte[i] = ch == '<' || ch == '>' || ch == '=' || ch == '!'
		isSpace[i] = ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
	}
}

// Error reports a byte that matched no tokenization rule, or an unterminated
// construct (e.g. a STRING missing its closing quote).
type Error struct {
	Line    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// Lexer scans LMN source text into tokens.
type Lexer struct {
	src    string
	pos    int
	line   int
	logger *slog.Logger
}

// New creates a Lexer over src. Debug tracing of every emitted token can be
// enabled by setting LMN_DEBUG_LEXER in the environment.
func New(src string) *Lexer {
	logLevel := slog.LevelInfo
	if os.Getenv("LMN_DEBUG_LEXER") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	return &Lexer{src: src, line: 1, logger: logger}
}

// Tokenize scans the entire source and returns its token stream, including a
// trailing EOF token. COMMENT and whitespace are discarded, never emitted.
func Tokenize(src string) ([]token.Token, error) {
	l := New(src)
	var out []token.Token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}

// next scans and returns the next significant token, skipping comments and
// whitespace as it goes.
func (l *Lexer) next() (token.Token, error) {
	for {
		if l.pos >= len(l.src) {
			return l.emit(token.EOF, ""), nil
		}

		ch := l.src[l.pos]

		switch {
		case ch == '#':
			l.skipComment()
			continue
		case ch < 128 && isSpace[ch]:
			l.skipWhitespace()
			continue
		case ch == '{':
			l.pos++
			return l.emit(token.LBRACE, "{"), nil
		case ch == '}':
			l.pos++
			return l.emit(token.RBRACE, "}"), nil
		case ch == '"':
			return l.scanString()
		case ch < 128 && isDigit[ch]:
			return l.scanNumber(), nil
		case ch < 128 && isUpperStart[ch]:
			return l.scanKeyword(), nil
		case ch < 128 && isLowerStart[ch]:
			return l.scanIdent(), nil
		case ch < 128 && isSymbolByte[ch]:
			return l.scanSymbol(), nil
		default:
			return token.Token{}, &Error{Line: l.line, Message: fmt.Sprintf("unexpected byte %q", ch)}
		}
	}
}

func (l *Lexer) emit(kind token.Kind, lexeme string) token.Token {
	t := token.Token{Kind: kind, Lexeme: lexeme, Line: l.line}
	l.logger.Debug("token", "kind", kind.String(), "lexeme", lexeme, "line", l.line)
	return t
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) {
		ch := l.src[l.pos]
		if ch >= 128 || !isSpace[ch] {
			break
		}
		if ch == '\n' {
			l.line++
		}
		l.pos++
	}
}

func (l *Lexer) scanString() (token.Token, error) {
	startLine := l.line
	l.pos++ // consume opening quote
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] != '"' {
		if l.src[l.pos] == '\n' {
			l.line++
		}
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token.Token{}, &Error{Line: startLine, Message: "unterminated string literal"}
	}
	lexeme := l.src[start:l.pos]
	l.pos++ // consume closing quote
	l.logger.Debug("token", "kind", token.STRING.String(), "lexeme", lexeme, "line", startLine)
	return token.Token{Kind: token.STRING, Lexeme: lexeme, Line: startLine}, nil
}

func (l *Lexer) scanNumber() token.Token {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] < 128 && isDigit[l.src[l.pos]] {
		l.pos++
	}
	return l.emit(token.NUMBER, l.src[start:l.pos])
}

func (l *Lexer) scanKeyword() token.Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] < 128 && isUpperPart[l.src[l.pos]] {
		l.pos++
	}
	return l.emit(token.KEYWORD, l.src[start:l.pos])
}

func (l *Lexer) scanIdent() token.Token {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && l.src[l.pos] < 128 && isLowerPart[l.src[l.pos]] {
		l.pos++
	}
	return l.emit(token.IDENT, l.src[start:l.pos])
}

func (l *Lexer) scanSymbol() token.Token {
	start := l.pos
	for l.pos < len(l.src) && l.src[l.pos] < 128 && isSymbolByte[l.src[l.pos]] {
		l.pos++
	}
	return l.emit(token.SYMBOL, l.src[start:l.pos])
}
