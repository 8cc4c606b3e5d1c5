// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prolog

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// =============================================================================
// Clauses
// =============================================================================

// Clause is one fact or rule. Facts carry the atom true as their body.
type Clause struct {
	Head *Term
	Body *Term
}

// ReadProgram parses src as a sequence of '.'-terminated clauses.
//
// Directives (:- Goal) are rejected: the service loads request-scoped
// programs only, so there is no module system or flag machinery for a
// directive to act on.
func ReadProgram(src string) ([]Clause, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	var clauses []Clause
	for !p.at(tkEOF) {
		p.resetVars()
		t, _, err := p.parse(1200)
		if err != nil {
			return nil, err
		}
		if err := p.expect(tkEnd, "."); err != nil {
			return nil, err
		}
		c, err := toClause(t)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

// ReadQuery parses src as a single goal. The trailing '.' is optional.
//
// The second return value lists the query's named variables in order of
// first appearance in the source text; anonymous variables (_) are excluded.
// This order is the only externally meaningful binding order and is
// preserved all the way into the JSON envelope.
func ReadQuery(src string) (*Term, []*Term, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, nil, err
	}
	p := &parser{toks: toks}
	p.resetVars()
	if p.at(tkEOF) {
		return nil, nil, syntaxErrorf(1, 1, "empty query")
	}
	t, _, err := p.parse(1200)
	if err != nil {
		return nil, nil, err
	}
	if p.at(tkEnd) {
		p.pos++
	}
	if !p.at(tkEOF) {
		tok := p.peek()
		return nil, nil, syntaxErrorf(tok.line, tok.col, "unexpected %q after query", tok.text)
	}
	rt := Resolve(t)
	if rt.Kind != KindVar && !rt.IsCallable() {
		return nil, nil, typeError("callable goal", rt)
	}
	return t, p.order, nil
}

func toClause(t *Term) (Clause, error) {
	if t.Kind == KindCompound && t.Functor == ":-" {
		switch len(t.Args) {
		case 1:
			return Clause{}, &Error{Code: CodeSyntax, Detail: "unsupported directive: " + t.String()}
		case 2:
			head := Resolve(t.Args[0])
			if !head.IsCallable() {
				return Clause{}, typeError("callable clause head", head)
			}
			return Clause{Head: head, Body: t.Args[1]}, nil
		}
	}
	if !t.IsCallable() {
		return Clause{}, typeError("callable clause head", t)
	}
	return Clause{Head: t, Body: Atom("true")}, nil
}

// =============================================================================
// Tokenizer
// =============================================================================

type tkKind uint8

const (
	tkAtom tkKind = iota
	tkVar
	tkInt
	tkFloat
	tkString
	tkPunct // ( ) [ ] , |
	tkEnd   // clause-terminating dot
	tkEOF
)

type token struct {
	kind       tkKind
	text       string
	line, col  int
	start, end int // byte offsets into the source
}

const symbolicChars = "+-*/\\^<>=~:.?@#&$"

func isSymbolic(r rune) bool { return strings.ContainsRune(symbolicChars, r) }

func isAtomStart(r rune) bool { return unicode.IsLower(r) }

func isVarStart(r rune) bool { return unicode.IsUpper(r) || r == '_' }

func isIdent(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

type lexer struct {
	src  string
	i    int
	line int
	col  int
}

func lex(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tkEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) peekRune() (rune, int) {
	if lx.i >= len(lx.src) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(lx.src[lx.i:])
}

func (lx *lexer) advance(r rune, size int) {
	lx.i += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
}

func (lx *lexer) errf(format string, args ...any) *Error {
	return syntaxErrorf(lx.line, lx.col, format, args...)
}

func (lx *lexer) next() (token, error) {
	if err := lx.skipLayout(); err != nil {
		return token{}, err
	}
	line, col, start := lx.line, lx.col, lx.i
	r, sz := lx.peekRune()
	if sz == 0 {
		return token{kind: tkEOF, line: line, col: col, start: start, end: start}, nil
	}
	mk := func(kind tkKind, text string) token {
		return token{kind: kind, text: text, line: line, col: col, start: start, end: lx.i}
	}
	switch {
	case isAtomStart(r):
		lx.takeWhile(isIdent)
		return mk(tkAtom, lx.src[start:lx.i]), nil
	case isVarStart(r):
		lx.takeWhile(isIdent)
		return mk(tkVar, lx.src[start:lx.i]), nil
	case unicode.IsDigit(r):
		return lx.number(line, col, start)
	case r == '\'':
		text, err := lx.quoted('\'')
		if err != nil {
			return token{}, err
		}
		return mk(tkAtom, text), nil
	case r == '"':
		text, err := lx.quoted('"')
		if err != nil {
			return token{}, err
		}
		return mk(tkString, text), nil
	case r == '!' || r == ';':
		lx.advance(r, sz)
		return mk(tkAtom, string(r)), nil
	case r == '(' || r == ')' || r == '[' || r == ']' || r == ',' || r == '|':
		lx.advance(r, sz)
		return mk(tkPunct, string(r)), nil
	case isSymbolic(r):
		lx.takeWhile(isSymbolic)
		text := lx.src[start:lx.i]
		if text == "." && lx.atClauseEnd() {
			return mk(tkEnd, "."), nil
		}
		return mk(tkAtom, text), nil
	default:
		return token{}, lx.errf("unexpected character %q", r)
	}
}

// atClauseEnd reports whether a lone dot terminates a clause: it must be
// followed by layout, a line comment, or end of input.
func (lx *lexer) atClauseEnd() bool {
	r, sz := lx.peekRune()
	return sz == 0 || unicode.IsSpace(r) || r == '%'
}

func (lx *lexer) takeWhile(pred func(rune) bool) {
	for {
		r, sz := lx.peekRune()
		if sz == 0 || !pred(r) {
			return
		}
		lx.advance(r, sz)
	}
}

func (lx *lexer) skipLayout() error {
	for {
		r, sz := lx.peekRune()
		switch {
		case sz == 0:
			return nil
		case unicode.IsSpace(r):
			lx.advance(r, sz)
		case r == '%':
			for {
				r, sz = lx.peekRune()
				if sz == 0 || r == '\n' {
					break
				}
				lx.advance(r, sz)
			}
		case r == '/' && strings.HasPrefix(lx.src[lx.i:], "/*"):
			line, col := lx.line, lx.col
			lx.advance('/', 1)
			lx.advance('*', 1)
			for {
				if strings.HasPrefix(lx.src[lx.i:], "*/") {
					lx.advance('*', 1)
					lx.advance('/', 1)
					break
				}
				r, sz = lx.peekRune()
				if sz == 0 {
					return syntaxErrorf(line, col, "unterminated block comment")
				}
				lx.advance(r, sz)
			}
		default:
			return nil
		}
	}
}

func (lx *lexer) number(line, col, start int) (token, error) {
	lx.takeWhile(unicode.IsDigit)
	isFloat := false
	if r, _ := lx.peekRune(); r == '.' {
		// A dot only continues the number when a digit follows; otherwise it
		// is the clause terminator.
		if lx.i+1 < len(lx.src) {
			if nr, _ := utf8.DecodeRuneInString(lx.src[lx.i+1:]); unicode.IsDigit(nr) {
				isFloat = true
				lx.advance('.', 1)
				lx.takeWhile(unicode.IsDigit)
			}
		}
	}
	if r, sz := lx.peekRune(); r == 'e' || r == 'E' {
		j := lx.i + sz
		if j < len(lx.src) {
			nr, nsz := utf8.DecodeRuneInString(lx.src[j:])
			if nr == '+' || nr == '-' {
				j += nsz
				if j < len(lx.src) {
					nr, _ = utf8.DecodeRuneInString(lx.src[j:])
				} else {
					nr = 0
				}
			}
			if unicode.IsDigit(nr) {
				isFloat = true
				lx.advance(r, sz)
				if r, sz := lx.peekRune(); r == '+' || r == '-' {
					lx.advance(r, sz)
				}
				lx.takeWhile(unicode.IsDigit)
			}
		}
	}
	text := lx.src[start:lx.i]
	tok := token{text: text, line: line, col: col, start: start, end: lx.i}
	if isFloat {
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return token{}, syntaxErrorf(line, col, "invalid float %q", text)
		}
		tok.kind = tkFloat
		return tok, nil
	}
	if _, err := strconv.ParseInt(text, 10, 64); err != nil {
		return token{}, syntaxErrorf(line, col, "integer out of range: %q", text)
	}
	tok.kind = tkInt
	return tok, nil
}

func (lx *lexer) quoted(quote rune) (string, error) {
	line, col := lx.line, lx.col
	lx.advance(quote, 1)
	var sb strings.Builder
	for {
		r, sz := lx.peekRune()
		if sz == 0 {
			return "", syntaxErrorf(line, col, "unterminated quoted token")
		}
		lx.advance(r, sz)
		switch r {
		case quote:
			nr, nsz := lx.peekRune()
			if nr == quote {
				// Doubled quote is a literal quote character.
				lx.advance(nr, nsz)
				sb.WriteRune(quote)
				continue
			}
			return sb.String(), nil
		case '\\':
			er, esz := lx.peekRune()
			if esz == 0 {
				return "", syntaxErrorf(line, col, "unterminated quoted token")
			}
			lx.advance(er, esz)
			switch er {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'a':
				sb.WriteByte('\a')
			case 'b':
				sb.WriteByte('\b')
			case 'f':
				sb.WriteByte('\f')
			case 'v':
				sb.WriteByte('\v')
			case '\\', '\'', '"', '`':
				sb.WriteRune(er)
			case '\n':
				// Escaped newline is a line continuation.
			default:
				return "", syntaxErrorf(line, col, "unknown escape \\%c", er)
			}
		default:
			sb.WriteRune(r)
		}
	}
}

// =============================================================================
// Parser
// =============================================================================

type opType uint8

const (
	opXFX opType = iota
	opXFY
	opYFX
	opFY
	opFX
)

type opDef struct {
	prio int
	typ  opType
}

var infixOps = map[string]opDef{
	":-":   {1200, opXFX},
	";":    {1100, opXFY},
	"->":   {1050, opXFY},
	",":    {1000, opXFY},
	"=":    {700, opXFX},
	"\\=":  {700, opXFX},
	"==":   {700, opXFX},
	"\\==": {700, opXFX},
	"is":   {700, opXFX},
	"=:=":  {700, opXFX},
	"=\\=": {700, opXFX},
	"<":    {700, opXFX},
	">":    {700, opXFX},
	"=<":   {700, opXFX},
	">=":   {700, opXFX},
	"+":    {500, opYFX},
	"-":    {500, opYFX},
	"*":    {400, opYFX},
	"/":    {400, opYFX},
	"//":   {400, opYFX},
	"mod":  {400, opYFX},
}

var prefixOps = map[string]opDef{
	":-":  {1200, opFX},
	"\\+": {900, opFY},
	"-":   {200, opFY},
	"+":   {200, opFY},
}

type parser struct {
	toks   []token
	pos    int
	vars   map[string]*Term
	order  []*Term
	anonym int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) at(kind tkKind) bool { return p.toks[p.pos].kind == kind }

func (p *parser) atPunct(text string) bool {
	tok := p.peek()
	return tok.kind == tkPunct && tok.text == text
}

func (p *parser) expect(kind tkKind, what string) error {
	tok := p.peek()
	if tok.kind != kind {
		return syntaxErrorf(tok.line, tok.col, "expected %q, got %q", what, tok.text)
	}
	p.pos++
	return nil
}

func (p *parser) expectPunct(text string) error {
	tok := p.peek()
	if tok.kind != tkPunct || tok.text != text {
		return syntaxErrorf(tok.line, tok.col, "expected %q, got %q", text, tok.text)
	}
	p.pos++
	return nil
}

func (p *parser) resetVars() {
	p.vars = make(map[string]*Term)
	p.order = nil
}

func (p *parser) variable(name string) *Term {
	if name == "_" {
		p.anonym++
		return Var("_A" + strconv.Itoa(p.anonym))
	}
	if v, ok := p.vars[name]; ok {
		return v
	}
	v := Var(name)
	p.vars[name] = v
	if !strings.HasPrefix(name, "_") {
		p.order = append(p.order, v)
	}
	return v
}

// parse reads one term whose priority does not exceed maxPrec, returning the
// term and its priority.
func (p *parser) parse(maxPrec int) (*Term, int, error) {
	left, leftPrec, err := p.parsePrimary(maxPrec)
	if err != nil {
		return nil, 0, err
	}
	for {
		tok := p.peek()
		var name string
		switch {
		case tok.kind == tkAtom:
			name = tok.text
		case tok.kind == tkPunct && tok.text == ",":
			name = ","
		default:
			return left, leftPrec, nil
		}
		def, ok := infixOps[name]
		if !ok || def.prio > maxPrec {
			return left, leftPrec, nil
		}
		leftMax := def.prio - 1
		if def.typ == opYFX {
			leftMax = def.prio
		}
		if leftPrec > leftMax {
			return left, leftPrec, nil
		}
		p.pos++
		rightMax := def.prio - 1
		if def.typ == opXFY {
			rightMax = def.prio
		}
		right, _, err := p.parse(rightMax)
		if err != nil {
			return nil, 0, err
		}
		left = Compound(name, left, right)
		leftPrec = def.prio
	}
}

func (p *parser) parsePrimary(maxPrec int) (*Term, int, error) {
	tok := p.peek()
	switch tok.kind {
	case tkInt:
		p.pos++
		n, _ := strconv.ParseInt(tok.text, 10, 64)
		return Int(n), 0, nil
	case tkFloat:
		p.pos++
		f, _ := strconv.ParseFloat(tok.text, 64)
		return Float(f), 0, nil
	case tkString:
		p.pos++
		return String(tok.text), 0, nil
	case tkVar:
		p.pos++
		return p.variable(tok.text), 0, nil
	case tkAtom:
		return p.parseAtomic(tok, maxPrec)
	case tkPunct:
		switch tok.text {
		case "(":
			p.pos++
			t, _, err := p.parse(1200)
			if err != nil {
				return nil, 0, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, 0, err
			}
			return t, 0, nil
		case "[":
			p.pos++
			t, err := p.parseList()
			if err != nil {
				return nil, 0, err
			}
			return t, 0, nil
		}
	}
	return nil, 0, syntaxErrorf(tok.line, tok.col, "unexpected %q", tok.text)
}

func (p *parser) parseAtomic(tok token, maxPrec int) (*Term, int, error) {
	p.pos++
	next := p.peek()

	// A functor application requires the opening paren to touch the atom.
	if next.kind == tkPunct && next.text == "(" && next.start == tok.end {
		p.pos++
		var args []*Term
		for {
			arg, _, err := p.parse(999)
			if err != nil {
				return nil, 0, err
			}
			args = append(args, arg)
			if p.atPunct(",") {
				p.pos++
				continue
			}
			break
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, 0, err
		}
		return Compound(tok.text, args...), 0, nil
	}

	if def, ok := prefixOps[tok.text]; ok && def.prio <= maxPrec && p.canStartTerm() {
		// Negative numeric literals fold into the literal itself.
		if tok.text == "-" && (next.kind == tkInt || next.kind == tkFloat) {
			p.pos++
			if next.kind == tkInt {
				n, _ := strconv.ParseInt(next.text, 10, 64)
				return Int(-n), 0, nil
			}
			f, _ := strconv.ParseFloat(next.text, 64)
			return Float(-f), 0, nil
		}
		if tok.text == "+" && (next.kind == tkInt || next.kind == tkFloat) {
			p.pos++
			if next.kind == tkInt {
				n, _ := strconv.ParseInt(next.text, 10, 64)
				return Int(n), 0, nil
			}
			f, _ := strconv.ParseFloat(next.text, 64)
			return Float(f), 0, nil
		}
		argMax := def.prio
		if def.typ == opFX {
			argMax = def.prio - 1
		}
		arg, _, err := p.parse(argMax)
		if err != nil {
			return nil, 0, err
		}
		return Compound(tok.text, arg), def.prio, nil
	}

	return Atom(tok.text), 0, nil
}

// canStartTerm reports whether the current token can begin an operand, which
// decides between prefix-operator and plain-atom readings.
func (p *parser) canStartTerm() bool {
	tok := p.peek()
	switch tok.kind {
	case tkInt, tkFloat, tkString, tkVar:
		return true
	case tkAtom:
		// An atom that can only be infix here (e.g. `- =`) still counts as a
		// term start; resolving that is the recursive parse's job.
		return true
	case tkPunct:
		return tok.text == "(" || tok.text == "["
	default:
		return false
	}
}

func (p *parser) parseList() (*Term, error) {
	if p.atPunct("]") {
		p.pos++
		return EmptyList(), nil
	}
	var items []*Term
	for {
		item, _, err := p.parse(999)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.atPunct(",") {
			p.pos++
			continue
		}
		break
	}
	tail := EmptyList()
	if p.atPunct("|") {
		p.pos++
		t, _, err := p.parse(999)
		if err != nil {
			return nil, err
		}
		tail = t
	}
	if err := p.expectPunct("]"); err != nil {
		return nil, err
	}
	for i := len(items) - 1; i >= 0; i-- {
		tail = Cons(items[i], tail)
	}
	return tail, nil
}
