package template

import (
	"fmt"
	"strconv"
	"strings"
)

// Fragment is a parsed template: immutable once built, reusable across
// renders. Helpers declared with {{ define }} are collected separately
// so they can be registered into a Registry.
type Fragment struct {
	Name    string
	nodes   []node
	defines map[string]*Fragment
}

// Defines returns the named helper fragments declared in this fragment.
func (f *Fragment) Defines() map[string]*Fragment {
	return f.defines
}

// node is one parsed unit of a fragment body.
type node interface {
	pos() int
}

type textNode struct {
	at   int
	text string
}

type actionNode struct {
	at   int
	pipe *pipeline
}

type ifNode struct {
	at   int
	pipe *pipeline
	then []node
	els  []node // else-if chains become a nested ifNode here
}

type rangeNode struct {
	at   int
	pipe *pipeline
	body []node
	els  []node
}

type withNode struct {
	at   int
	pipe *pipeline
	body []node
	els  []node
}

func (n *textNode) pos() int   { return n.at }
func (n *actionNode) pos() int { return n.at }
func (n *ifNode) pos() int     { return n.at }
func (n *rangeNode) pos() int  { return n.at }
func (n *withNode) pos() int   { return n.at }

// pipeline is a sequence of commands joined by |; each command's output
// feeds the next as its final argument.
type pipeline struct {
	at   int
	cmds []*command
}

// command is a function call or a bare operand.
type command struct {
	at   int
	args []expr
}

type expr interface{}

// pathExpr is a context reference like .Values.image.tag or bare dot.
type pathExpr struct {
	at       int
	raw      string   // the dotted path without the leading dot
	segments []string // empty for bare dot
}

// identExpr is a function name in call position.
type identExpr struct {
	at   int
	name string
}

type literalExpr struct {
	at  int
	val any
}

type parenExpr struct {
	at   int
	pipe *pipeline
}

// ParseError reports a syntax error with the fragment name and line.
type ParseError struct {
	Fragment string
	Line     int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s:%d: %s", e.Fragment, e.Line, e.Msg)
}

// Parse parses template source into an immutable Fragment.
func Parse(name, source string) (*Fragment, error) {
	p := &parser{
		name:   name,
		source: source,
		tokens: lex(name, source),
		frag:   &Fragment{Name: name, defines: make(map[string]*Fragment)},
	}
	nodes, _, err := p.parseNodes(nil)
	if err != nil {
		return nil, err
	}
	p.frag.nodes = nodes
	return p.frag, nil
}

type parser struct {
	name   string
	source string
	tokens []token
	idx    int
	frag   *Fragment
}

func (p *parser) errorAt(pos int, format string, args ...any) error {
	line := 1 + strings.Count(p.source[:pos], "\n")
	return &ParseError{Fragment: p.name, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) next() token {
	t := p.tokens[p.idx]
	if t.kind != tokenEOF {
		p.idx++
	}
	return t
}

func (p *parser) peek() token {
	return p.tokens[p.idx]
}

// parseNodes parses body nodes until EOF or until a control keyword in
// stop is hit ({{ else }} / {{ end }}). The keyword that stopped the
// parse is returned; its closing delimiter is already consumed.
func (p *parser) parseNodes(stop []string) ([]node, string, error) {
	var nodes []node

	for {
		t := p.next()
		switch t.kind {
		case tokenEOF:
			return nodes, "", nil

		case tokenError:
			return nil, "", p.errorAt(t.pos, "%s", t.val)

		case tokenText:
			nodes = append(nodes, &textNode{at: t.pos, text: t.val})

		case tokenLeft:
			kw := ""
			if p.peek().kind == tokenIdent {
				kw = p.peek().val
			}

			switch kw {
			case "end", "else":
				p.next() // consume keyword
				for _, s := range stop {
					if s == kw {
						// For "else if" the caller peeks before the
						// closing delimiter is consumed.
						if kw == "else" && p.peek().kind == tokenIdent && p.peek().val == "if" {
							return nodes, kw, nil
						}
						if err := p.expectRight(kw); err != nil {
							return nil, "", err
						}
						return nodes, kw, nil
					}
				}
				return nil, "", p.errorAt(t.pos, "unexpected {{ %s }}", kw)

			case "if", "range", "with":
				p.next()
				n, err := p.parseControl(kw, t.pos)
				if err != nil {
					return nil, "", err
				}
				nodes = append(nodes, n)

			case "define":
				p.next()
				if err := p.parseDefine(t.pos); err != nil {
					return nil, "", err
				}

			default:
				pipe, err := p.parsePipeline(t.pos)
				if err != nil {
					return nil, "", err
				}
				if err := p.expectRight("action"); err != nil {
					return nil, "", err
				}
				nodes = append(nodes, &actionNode{at: t.pos, pipe: pipe})
			}

		default:
			return nil, "", p.errorAt(t.pos, "unexpected token in template body")
		}
	}
}

// parseControl parses if/range/with through the matching {{ end }}.
func (p *parser) parseControl(kw string, at int) (node, error) {
	pipe, err := p.parsePipeline(at)
	if err != nil {
		return nil, err
	}
	if err := p.expectRight(kw); err != nil {
		return nil, err
	}

	body, stopped, err := p.parseNodes([]string{"else", "end"})
	if err != nil {
		return nil, err
	}

	var els []node
	if stopped == "else" {
		els, err = p.parseElse(at)
		if err != nil {
			return nil, err
		}
	} else if stopped != "end" {
		return nil, p.errorAt(at, "unclosed {{ %s }}", kw)
	}

	switch kw {
	case "if":
		return &ifNode{at: at, pipe: pipe, then: body, els: els}, nil
	case "range":
		return &rangeNode{at: at, pipe: pipe, body: body, els: els}, nil
	default:
		return &withNode{at: at, pipe: pipe, body: body, els: els}, nil
	}
}

// parseElse handles the body after {{ else }}, including else-if chains.
func (p *parser) parseElse(at int) ([]node, error) {
	// An "else if" shows up as the ident "if" immediately after the
	// else keyword was consumed but before its closing delimiter.
	if p.peek().kind == tokenIdent && p.peek().val == "if" {
		p.next()
		n, err := p.parseControl("if", at)
		if err != nil {
			return nil, err
		}
		return []node{n}, nil
	}

	body, stopped, err := p.parseNodes([]string{"end"})
	if err != nil {
		return nil, err
	}
	if stopped != "end" {
		return nil, p.errorAt(at, "unclosed {{ else }}")
	}
	return body, nil
}

// parseDefine parses {{ define "name" }}...{{ end }} into a named
// helper fragment.
func (p *parser) parseDefine(at int) error {
	nameTok := p.next()
	if nameTok.kind != tokenString {
		return p.errorAt(at, "define needs a quoted helper name")
	}
	if err := p.expectRight("define"); err != nil {
		return err
	}

	body, stopped, err := p.parseNodes([]string{"end"})
	if err != nil {
		return err
	}
	if stopped != "end" {
		return p.errorAt(at, "unclosed {{ define %q }}", nameTok.val)
	}

	p.frag.defines[nameTok.val] = &Fragment{
		Name:    nameTok.val,
		nodes:   body,
		defines: make(map[string]*Fragment),
	}
	return nil
}

// expectRight consumes the closing delimiter of an action.
func (p *parser) expectRight(what string) error {
	t := p.next()
	if t.kind == tokenError {
		return p.errorAt(t.pos, "%s", t.val)
	}
	if t.kind != tokenRight {
		return p.errorAt(t.pos, "expected }} to close %s", what)
	}
	return nil
}

// parsePipeline parses command ('|' command)* up to (not including) the
// closing delimiter or a closing paren.
func (p *parser) parsePipeline(at int) (*pipeline, error) {
	pipe := &pipeline{at: at}
	for {
		cmd, err := p.parseCommand()
		if err != nil {
			return nil, err
		}
		pipe.cmds = append(pipe.cmds, cmd)
		if p.peek().kind != tokenPipe {
			return pipe, nil
		}
		p.next() // consume |
	}
}

// parseCommand parses one pipeline stage: an operand, or a function
// name followed by operand arguments.
func (p *parser) parseCommand() (*command, error) {
	cmd := &command{at: p.peek().pos}
	for {
		t := p.peek()
		switch t.kind {
		case tokenRight, tokenPipe, tokenRParen, tokenEOF:
			if len(cmd.args) == 0 {
				return nil, p.errorAt(t.pos, "empty pipeline stage")
			}
			return cmd, nil

		case tokenError:
			return nil, p.errorAt(t.pos, "%s", t.val)

		case tokenIdent:
			p.next()
			switch t.val {
			case "true", "false":
				cmd.args = append(cmd.args, &literalExpr{at: t.pos, val: t.val == "true"})
			case "nil", "null":
				cmd.args = append(cmd.args, &literalExpr{at: t.pos, val: nil})
			default:
				if len(cmd.args) > 0 {
					return nil, p.errorAt(t.pos, "function %q must start its pipeline stage", t.val)
				}
				cmd.args = append(cmd.args, &identExpr{at: t.pos, name: t.val})
			}

		case tokenPath:
			p.next()
			cmd.args = append(cmd.args, newPathExpr(t))

		case tokenString:
			p.next()
			cmd.args = append(cmd.args, &literalExpr{at: t.pos, val: t.val})

		case tokenNumber:
			p.next()
			val, err := parseNumber(t.val)
			if err != nil {
				return nil, p.errorAt(t.pos, "malformed number %q", t.val)
			}
			cmd.args = append(cmd.args, &literalExpr{at: t.pos, val: val})

		case tokenLParen:
			p.next()
			inner, err := p.parsePipeline(t.pos)
			if err != nil {
				return nil, err
			}
			closing := p.next()
			if closing.kind != tokenRParen {
				return nil, p.errorAt(t.pos, "unclosed parenthesis")
			}
			cmd.args = append(cmd.args, &parenExpr{at: t.pos, pipe: inner})

		default:
			return nil, p.errorAt(t.pos, "unexpected token in pipeline")
		}
	}
}

func newPathExpr(t token) *pathExpr {
	raw := strings.TrimPrefix(t.val, ".")
	var segments []string
	if raw != "" {
		segments = strings.Split(raw, ".")
	}
	return &pathExpr{at: t.pos, raw: raw, segments: segments}
}

func parseNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return f, nil
}
