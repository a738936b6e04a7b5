// Released under an MIT license. See LICENSE.

// Package parser provides a Pratt parser for fig's curly-brace syntax.
//
// The parser lowers surface syntax to the pair trees the fig evaluator
// consumes. Compiled expressions are ordinary cells in the context's
// arena; with a span table attached, each compiled form is also mapped
// back to its source location.
package parser

import (
	"strconv"
	"strings"

	"github.com/michaelmacinnis/adapted"

	"github.com/figlang/fig"
	"github.com/figlang/fig/compiler/lexer"
	"github.com/figlang/fig/compiler/spans"
	"github.com/figlang/fig/compiler/token"
)

// T holds the state of the parser.
type T struct {
	ctx   *fig.Context
	lexer *lexer.T
	spans *spans.Table

	current  *token.T // Token lookahead.
	previous *token.T // Most recently consumed token.

	errs      []string
	panicking bool
}

type parser = T

const maxNameLen = 63

// New creates a parser reading tokens from l. Table may be nil, in which
// case no spans are recorded.
func New(ctx *fig.Context, l *lexer.T, table *spans.Table) *parser {
	return &parser{ctx: ctx, lexer: l, spans: table}
}

// Compile parses source into a single expression. A program of more than
// one declaration is wrapped in a do form.
func Compile(ctx *fig.Context, name, source string) (fig.Value, error) {
	return New(ctx, lexer.New(name, source), nil).Compile()
}

// Run compiles and evaluates source. The result is not rooted; a host
// that holds on to it across further allocation must push it on the GC
// stack.
func Run(ctx *fig.Context, name, source string) (fig.Value, error) {
	save := ctx.SaveGC()
	defer ctx.RestoreGC(save)

	code, err := Compile(ctx, name, source)
	if err != nil {
		return fig.Nil, err
	}

	return ctx.Eval(code)
}

// Compile parses the whole token stream into a single expression. On
// success the expression is left rooted on the context's GC stack; the
// caller pairs this with its own save and restore.
func (p *parser) Compile() (res fig.Value, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		e, ok := r.(*fig.Error)
		if !ok {
			panic(r)
		}

		res, err = fig.Nil, e
	}()

	p.advance()

	save := p.ctx.SaveGC()

	head, tail := fig.Nil, fig.Nil
	count := 0

	for !p.match(token.EOF) {
		p.ctx.RestoreGC(save)
		if head != fig.Nil {
			p.ctx.PushGC(head)
		}

		node := p.declaration()

		next := p.ctx.Cons(node, fig.Nil)
		if head == fig.Nil {
			head = next
		} else {
			p.ctx.SetCdr(tail, next)
		}
		tail = next

		count++

		if p.errs != nil {
			break
		}
	}

	if p.errs != nil {
		p.ctx.RestoreGC(save)

		return fig.Nil, &fig.Error{
			Kind: fig.SyntaxError,
			Msg:  strings.Join(p.errs, "\n"),
		}
	}

	var program fig.Value

	switch count {
	case 0:
		program = fig.Nil
	case 1:
		program = p.ctx.Car(head)
	default:
		program = p.cons(p.ctx.Sym("do"), head)
	}

	p.ctx.RestoreGC(save)
	p.ctx.PushGC(program)

	return program, nil
}

// Pratt parser precedence levels, lowest first.
type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type rule struct {
	prefix func(*parser) fig.Value
	infix  bool
	prec   precedence
}

var rules [token.EOF + 1]rule

func init() {
	rules = [token.EOF + 1]rule{
		token.LParen:       {prefix: grouping, infix: true, prec: precCall},
		token.LBracket:     {prefix: list},
		token.Dot:          {infix: true, prec: precCall},
		token.Minus:        {prefix: unary, infix: true, prec: precTerm},
		token.Plus:         {infix: true, prec: precTerm},
		token.Slash:        {infix: true, prec: precFactor},
		token.Star:         {infix: true, prec: precFactor},
		token.Bang:         {prefix: unary},
		token.BangEqual:    {infix: true, prec: precEquality},
		token.Equal:        {infix: true, prec: precAssignment},
		token.EqualEqual:   {infix: true, prec: precEquality},
		token.Greater:      {infix: true, prec: precComparison},
		token.GreaterEqual: {infix: true, prec: precComparison},
		token.Less:         {infix: true, prec: precComparison},
		token.LessEqual:    {infix: true, prec: precComparison},
		token.Identifier:   {prefix: variable},
		token.String:       {prefix: str},
		token.Number:       {prefix: number},
		token.And:          {infix: true, prec: precAnd},
		token.False:        {prefix: literal},
		token.Fn:           {prefix: function},
		token.Nil:          {prefix: literal},
		token.Or:           {infix: true, prec: precOr},
		token.True:         {prefix: literal},
	}
}

var operators = map[token.Class]string{
	token.Plus:       "+",
	token.Minus:      "-",
	token.Star:       "*",
	token.Slash:      "/",
	token.EqualEqual: "is",
	token.Less:       "<",
	token.LessEqual:  "<=",
	token.And:        "and",
	token.Or:         "or",
}

// Prefix parse functions. Each is entered with its token as previous.

func function(p *parser) fig.Value {
	return p.fn()
}

func grouping(p *parser) fig.Value {
	expr := p.expression()
	p.consume(token.RParen, "expect ')' after expression")

	return expr
}

func list(p *parser) fig.Value {
	save := p.ctx.SaveGC()

	head, tail := fig.Nil, fig.Nil

	if !p.check(token.RBracket) {
		for {
			next := p.ctx.Cons(p.expression(), fig.Nil)
			if head == fig.Nil {
				head = next
			} else {
				p.ctx.SetCdr(tail, next)
			}
			tail = next

			p.ctx.RestoreGC(save)
			p.ctx.PushGC(head)

			if !p.match(token.Comma) {
				break
			}
		}
	}

	p.consume(token.RBracket, "expect ']' after list elements")

	return p.cons(p.ctx.Sym("list"), head)
}

func literal(p *parser) fig.Value {
	switch p.previous.Class() {
	case token.False:
		return fig.False
	case token.True:
		return fig.True
	default:
		return fig.Nil
	}
}

func number(p *parser) fig.Value {
	text := p.previous.Value()

	if len(text) > 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X') {
		u, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			p.failAt(p.previous, "number out of range")

			return fig.Nil
		}

		return p.ctx.Num(float64(u))
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		p.failAt(p.previous, "number out of range")

		return fig.Nil
	}

	return p.ctx.Num(f)
}

func str(p *parser) fig.Value {
	text := p.previous.Value()
	if len(text) < 2 {
		return fig.Nil
	}

	s, err := adapted.ActualBytes(text[1 : len(text)-1])
	if err != nil {
		p.failAt(p.previous, "invalid escape in string")

		return fig.Nil
	}

	return p.ctx.Str(s)
}

func unary(p *parser) fig.Value {
	op := p.previous.Class()

	right := p.parse(precUnary)

	if op == token.Bang {
		return p.form1("not", right)
	}

	return p.form1("-", right)
}

func variable(p *parser) fig.Value {
	return p.symbol(p.previous)
}

// Grammar productions.

func (p *parser) declaration() fig.Value {
	if p.match(token.Module) {
		return p.moduleDeclaration()
	}

	if p.match(token.Import) {
		return p.importDeclaration()
	}

	export := p.match(token.Export)

	decl, ok := fig.Nil, false

	if p.match(token.Let) {
		decl, ok = p.varDeclaration(), true
	} else if p.match(token.Fn) {
		if !export && !p.check(token.Identifier) {
			// Without a name, fn opens an expression statement
			// holding an anonymous function.
			stmt := p.fn()
			p.consume(token.Semicolon, "expect ';' after expression")

			if p.panicking {
				p.synchronize()
			}

			return stmt
		}

		p.consume(token.Identifier, "expect function name")
		name := p.symbol(p.previous)

		decl, ok = p.form2("let", name, p.fn()), true
	}

	if ok {
		if export {
			return p.form1("export", decl)
		}

		return decl
	}

	if export {
		p.failAt(p.previous, "only 'let' and 'fn' declarations can be exported")
	}

	stmt := p.statement()
	if p.panicking {
		p.synchronize()
	}

	return stmt
}

func (p *parser) statement() fig.Value {
	switch {
	case p.match(token.Return):
		return p.returnStatement()
	case p.match(token.If):
		return p.ifStatement()
	case p.match(token.While):
		return p.whileStatement()
	case p.match(token.LBrace):
		return p.block()
	}

	return p.exprStatement()
}

func (p *parser) block() fig.Value {
	head, tail := fig.Nil, fig.Nil
	count := 0

	for !p.check(token.RBrace) && !p.check(token.EOF) {
		next := p.ctx.Cons(p.declaration(), fig.Nil)
		if head == fig.Nil {
			head = next
		} else {
			p.ctx.SetCdr(tail, next)
		}
		tail = next

		count++
	}

	p.consume(token.RBrace, "expect '}' after block")

	switch count {
	case 0:
		return fig.Nil
	case 1:
		return p.ctx.Car(head)
	}

	return p.cons(p.ctx.Sym("do"), head)
}

// fn parses a parameter list and body. The leading fn keyword, and a
// name when there is one, have already been consumed.
func (p *parser) fn() fig.Value {
	p.consume(token.LParen, "expect '(' after 'fn'")

	params := fig.Nil

	if !p.check(token.RParen) {
		for {
			p.consume(token.Identifier, "expect parameter name")
			params = p.ctx.Cons(p.symbol(p.previous), params)

			if !p.match(token.Comma) {
				break
			}
		}
	}

	p.consume(token.RParen, "expect ')' after parameters")

	reversed := fig.Nil
	for v := params; v != fig.Nil; v = p.ctx.Cdr(v) {
		reversed = p.ctx.Cons(p.ctx.Car(v), reversed)
	}

	p.consume(token.LBrace, "expect '{' before function body")
	body := p.block()

	return p.cons(p.ctx.Sym("fn"), p.ctx.Cons(reversed, p.ctx.Cons(body, fig.Nil)))
}

func (p *parser) exprStatement() fig.Value {
	expr := p.expression()
	p.consume(token.Semicolon, "expect ';' after expression")

	return expr
}

func (p *parser) ifStatement() fig.Value {
	p.consume(token.LParen, "expect '(' after 'if'")
	condition := p.expression()
	p.consume(token.RParen, "expect ')' after condition")

	then := p.statement()

	alt := fig.Nil
	if p.match(token.Else) {
		alt = p.statement()
	}

	rest := p.ctx.Cons(condition, p.ctx.Cons(then, p.ctx.Cons(alt, fig.Nil)))

	return p.cons(p.ctx.Sym("if"), rest)
}

func (p *parser) importDeclaration() fig.Value {
	p.consume(token.Identifier, "expect module name to import")
	name := p.symbol(p.previous)
	p.consume(token.Semicolon, "expect ';' after import statement")

	return p.cons(p.ctx.Sym("import"), p.ctx.Cons(name, fig.Nil))
}

func (p *parser) moduleDeclaration() fig.Value {
	p.consume(token.LParen, "expect '(' after 'module'")
	p.consume(token.String, "expect module name string")
	name := str(p)
	p.consume(token.RParen, "expect ')' after module name")

	p.consume(token.LBrace, "expect '{' before module body")
	body := p.block()

	return p.cons(p.ctx.Sym("module"), p.ctx.Cons(name, p.ctx.Cons(body, fig.Nil)))
}

func (p *parser) returnStatement() fig.Value {
	value := fig.Nil
	if !p.check(token.Semicolon) {
		value = p.expression()
	}

	p.consume(token.Semicolon, "expect ';' after return value")

	return p.cons(p.ctx.Sym("return"), p.ctx.Cons(value, fig.Nil))
}

func (p *parser) varDeclaration() fig.Value {
	p.consume(token.Identifier, "expect variable name")
	name := p.symbol(p.previous)

	value := fig.Nil
	if p.match(token.Equal) {
		value = p.expression()
	}

	p.consume(token.Semicolon, "expect ';' after variable declaration")

	return p.form2("let", name, value)
}

func (p *parser) whileStatement() fig.Value {
	p.consume(token.LParen, "expect '(' after 'while'")
	condition := p.expression()
	p.consume(token.RParen, "expect ')' after condition")

	body := p.statement()

	return p.cons(p.ctx.Sym("while"), p.ctx.Cons(condition, p.ctx.Cons(body, fig.Nil)))
}

// Expressions.

func (p *parser) expression() fig.Value {
	return p.parse(precAssignment)
}

func (p *parser) parse(prec precedence) fig.Value {
	p.advance()

	prefix := rules[p.previous.Class()].prefix
	if prefix == nil {
		p.failAt(p.previous, "expect expression")

		return fig.Nil
	}

	left := prefix(p)

	for {
		r := rules[p.current.Class()]
		if !r.infix || prec > r.prec {
			break
		}

		p.advance()

		left = p.infix(left, r.prec)
	}

	return left
}

func (p *parser) infix(left fig.Value, prec precedence) fig.Value {
	switch op := p.previous.Class(); op {
	case token.Equal:
		if p.ctx.TypeOf(left) != fig.TSymbol {
			p.failAt(p.previous, "invalid assignment target")

			return fig.Nil
		}

		return p.form2("=", left, p.parse(precAssignment))

	case token.LParen:
		return p.call(left)

	case token.Dot:
		p.consume(token.Identifier, "expect property name after '.'")

		return p.form2("get", left, p.symbol(p.previous))

	case token.BangEqual:
		return p.form1("not", p.form2("is", left, p.parse(prec+1)))

	case token.Greater:
		return p.form2("<", p.parse(prec+1), left)

	case token.GreaterEqual:
		return p.form2("<=", p.parse(prec+1), left)

	default:
		return p.form2(operators[op], left, p.parse(prec+1))
	}
}

func (p *parser) call(callee fig.Value) fig.Value {
	head, tail := fig.Nil, fig.Nil

	if !p.check(token.RParen) {
		for {
			next := p.ctx.Cons(p.expression(), fig.Nil)
			if head == fig.Nil {
				head = next
			} else {
				p.ctx.SetCdr(tail, next)
			}
			tail = next

			if !p.match(token.Comma) {
				break
			}
		}
	}

	p.consume(token.RParen, "expect ')' after arguments")

	return p.cons(callee, head)
}

// Expression builders. cons records a span for the new pair, so every
// compiled form is traceable when a table is attached. The recorded span
// starts and ends at the location of the most recently consumed token.

func (p *parser) cons(h, t fig.Value) fig.Value {
	v := p.ctx.Cons(h, t)

	if p.spans != nil {
		src := p.previous.Source()
		p.spans.Record(v, src, src)
	}

	return v
}

func (p *parser) form1(op string, arg fig.Value) fig.Value {
	return p.cons(p.ctx.Sym(op), p.ctx.Cons(arg, fig.Nil))
}

func (p *parser) form2(op string, a, b fig.Value) fig.Value {
	return p.cons(p.ctx.Sym(op), p.ctx.Cons(a, p.ctx.Cons(b, fig.Nil)))
}

func (p *parser) symbol(t *token.T) fig.Value {
	name := t.Value()
	if len(name) > maxNameLen {
		p.failAt(t, "identifier too long")

		return fig.Nil
	}

	return p.ctx.Sym(name)
}

// Token plumbing.

func (p *parser) advance() {
	p.previous = p.current

	for {
		p.current = p.lexer.Token()
		if !p.current.Is(token.Error) {
			break
		}

		p.failAt(p.current, p.current.Value())
	}
}

func (p *parser) check(c token.Class) bool {
	return p.current.Is(c)
}

func (p *parser) consume(c token.Class, msg string) {
	if p.check(c) {
		p.advance()

		return
	}

	p.failAt(p.current, msg)
}

func (p *parser) match(c token.Class) bool {
	if !p.check(c) {
		return false
	}

	p.advance()

	return true
}

func (p *parser) failAt(t *token.T, msg string) {
	if p.panicking {
		return
	}
	p.panicking = true

	if t.Is(token.EOF) {
		msg += " at end of input"
	} else if !t.Is(token.Error) {
		msg += " at '" + t.Value() + "'"
	}

	p.errs = append(p.errs, t.Source().String()+": "+msg)
}

func (p *parser) synchronize() {
	p.panicking = false

	for !p.check(token.EOF) {
		if p.previous.Is(token.Semicolon) {
			return
		}

		switch p.current.Class() {
		case token.Fn, token.Let, token.If, token.While, token.Return:
			return
		}

		p.advance()
	}
}
