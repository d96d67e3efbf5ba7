// Copyright 2026 The bitpunch Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scanner implements a lexer for the format-specification and
// expression DSL.
package scanner

import (
	"fmt"
	"unicode/utf8"

	"github.com/leanderhang/bitpunch/bp/token"
)

// ErrorHandler is called for each lexical error encountered, with the byte
// offset and a human-readable message.
type ErrorHandler func(offset int, msg string)

// Scanner tokenizes DSL source text one token at a time.
type Scanner struct {
	file *token.File
	src  []byte
	err  ErrorHandler

	ch         rune
	offset     int
	rdOffset   int
	lineOffset int

	ErrorCount int
}

const eof = -1

// Init prepares s to scan src, whose positions are recorded against file.
// file.Size() must equal len(src).
func (s *Scanner) Init(file *token.File, src []byte, err ErrorHandler) {
	s.file = file
	s.src = src
	s.err = err
	s.ch = ' '
	s.offset = 0
	s.rdOffset = 0
	s.lineOffset = 0
	s.ErrorCount = 0
	s.next()
}

func (s *Scanner) next() {
	if s.rdOffset < len(s.src) {
		s.offset = s.rdOffset
		if s.ch == '\n' {
			s.lineOffset = s.offset
			s.file.AddLine(s.offset)
		}
		r, w := rune(s.src[s.rdOffset]), 1
		if r >= utf8.RuneSelf {
			r, w = utf8.DecodeRune(s.src[s.rdOffset:])
		}
		s.rdOffset += w
		s.ch = r
	} else {
		s.offset = len(s.src)
		if s.ch == '\n' {
			s.lineOffset = s.offset
			s.file.AddLine(s.offset)
		}
		s.ch = eof
	}
}

func (s *Scanner) peek() byte {
	if s.rdOffset < len(s.src) {
		return s.src[s.rdOffset]
	}
	return 0
}

func (s *Scanner) error(offset int, msg string) {
	s.ErrorCount++
	if s.err != nil {
		s.err(offset, msg)
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z') || ch >= utf8.RuneSelf
}

func isDigit(ch rune) bool { return '0' <= ch && ch <= '9' }

func (s *Scanner) skipWhitespace() {
	for s.ch == ' ' || s.ch == '\t' || s.ch == '\n' || s.ch == '\r' {
		s.next()
	}
}

func (s *Scanner) scanIdentifier() string {
	start := s.offset
	for isLetter(s.ch) || isDigit(s.ch) {
		s.next()
	}
	return string(s.src[start:s.offset])
}

func (s *Scanner) scanNumber() string {
	start := s.offset
	if s.ch == '0' && (s.peek() == 'x' || s.peek() == 'X') {
		s.next()
		s.next()
		for isHexDigit(s.ch) {
			s.next()
		}
		return string(s.src[start:s.offset])
	}
	for isDigit(s.ch) {
		s.next()
	}
	return string(s.src[start:s.offset])
}

func isHexDigit(ch rune) bool {
	return isDigit(ch) || ('a' <= ch && ch <= 'f') || ('A' <= ch && ch <= 'F')
}

func (s *Scanner) scanString(quote rune) string {
	start := s.offset
	s.next() // consume opening quote
	for s.ch != quote {
		if s.ch == '\n' || s.ch == eof {
			s.error(start, "string literal not terminated")
			break
		}
		if s.ch == '\\' {
			s.next()
		}
		s.next()
	}
	end := s.offset
	if s.ch == quote {
		s.next() // consume closing quote
		end = s.offset
	}
	return string(s.src[start:end])
}

func (s *Scanner) skipLineComment() {
	for s.ch != '\n' && s.ch != eof {
		s.next()
	}
}

func (s *Scanner) skipBlockComment() {
	start := s.offset
	s.next()
	s.next()
	for {
		if s.ch == eof {
			s.error(start, "comment not terminated")
			return
		}
		if s.ch == '*' && s.peek() == '/' {
			s.next()
			s.next()
			return
		}
		s.next()
	}
}

// Scan returns the next token, its literal spelling (for IDENT, INT, STRING),
// and its position.
func (s *Scanner) Scan() (pos token.Pos, tok token.Token, lit string) {
scanAgain:
	s.skipWhitespace()
	pos = s.file.Pos(s.offset)

	switch ch := s.ch; {
	case isLetter(ch):
		lit = s.scanIdentifier()
		tok = token.Lookup(lit)
	case isDigit(ch):
		lit = s.scanNumber()
		tok = token.INT
	default:
		switch ch {
		case eof:
			tok = token.EOF
		case '"':
			lit = s.scanString('"')
			tok = token.STRING
		case '\'':
			lit = s.scanString('\'')
			tok = token.STRING
		case '/':
			if s.peek() == '/' {
				s.skipLineComment()
				goto scanAgain
			} else if s.peek() == '*' {
				s.skipBlockComment()
				goto scanAgain
			}
			s.next()
			tok = token.QUO
		case '{':
			s.next()
			tok = token.LBRACE
		case '}':
			s.next()
			tok = token.RBRACE
		case '[':
			s.next()
			tok = token.LBRACK
		case ']':
			s.next()
			tok = token.RBRACK
		case '(':
			s.next()
			tok = token.LPAREN
		case ')':
			s.next()
			tok = token.RPAREN
		case ',':
			s.next()
			tok = token.COMMA
		case ';':
			s.next()
			tok = token.SEMICOLON
		case ':':
			s.next()
			tok = token.COLON
		case '@':
			s.next()
			tok = token.AT
		case '?':
			s.next()
			tok = token.QUESTION
		case '+':
			s.next()
			tok = token.ADD
		case '-':
			s.next()
			tok = token.SUB
		case '*':
			s.next()
			tok = token.MUL
		case '=':
			s.next()
			if s.ch == '=' {
				s.next()
				tok = token.EQL
			} else {
				tok = token.ASSIGN
			}
		case '!':
			s.next()
			if s.ch == '=' {
				s.next()
				tok = token.NEQ
			} else {
				s.error(s.offset, fmt.Sprintf("illegal character %#U", ch))
				tok = token.ILLEGAL
			}
		case '<':
			s.next()
			switch s.ch {
			case '>':
				s.next()
				tok = token.OVERLAY
			case '=':
				s.next()
				tok = token.LEQ
			default:
				tok = token.LSS
			}
		case '>':
			s.next()
			if s.ch == '=' {
				s.next()
				tok = token.GEQ
			} else {
				tok = token.GTR
			}
		case '.':
			s.next()
			if s.ch == '.' {
				s.next()
				tok = token.ELLIPSIS
			} else {
				tok = token.PERIOD
			}
		default:
			s.error(s.offset, fmt.Sprintf("illegal character %#U", ch))
			s.next()
			tok = token.ILLEGAL
		}
	}
	return
}
