package expr

// node is an element of the parsed expression tree.
type node interface {
	pos() int
}

type (
	literalNode struct {
		at  int
		val Value
	}
	identNode struct {
		at   int
		name string
	}
	unaryNode struct {
		at      int
		op      string
		operand node
	}
	binaryNode struct {
		at          int
		op          string
		left, right node
	}
	ternaryNode struct {
		at                int
		cond, then, other node
	}
	assignNode struct {
		at    int
		name  string
		value node
	}
	callNode struct {
		at   int
		name string
		args []node
	}
	sequenceNode struct {
		at    int
		items []node
	}
)

func (n *literalNode) pos() int  { return n.at }
func (n *identNode) pos() int    { return n.at }
func (n *unaryNode) pos() int    { return n.at }
func (n *binaryNode) pos() int   { return n.at }
func (n *ternaryNode) pos() int  { return n.at }
func (n *assignNode) pos() int   { return n.at }
func (n *callNode) pos() int     { return n.at }
func (n *sequenceNode) pos() int { return n.at }

var keywords = map[string]bool{
	"and": true, "or": true, "not": true, "true": true, "false": true, "null": true,
}

// parser is a precedence-climbing parser. From lowest to highest binding:
//
//	sequence    a; b
//	assignment  x = a        (right associative)
//	ternary     c ? a : b    (right associative)
//	or          or ||
//	and         and &&
//	equality    == !=
//	relational  < <= > >=
//	additive    + -
//	multiply    * / %
//	unary       not ! - +
//	primary     literal, identifier, call, (group)
type parser struct {
	src  string
	toks []token
	i    int
}

func parse(src string) (node, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	n, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, syntaxErrorf(src, t.pos, "unexpected %q", t.text)
	}
	return n, nil
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isOp(ops ...string) bool {
	t := p.peek()
	if t.kind != tokOp && t.kind != tokIdent {
		return false
	}
	for _, op := range ops {
		if t.text == op {
			return true
		}
	}
	return false
}

func (p *parser) parseSequence() (node, error) {
	start := p.peek().pos
	var items []node
	for {
		for p.peek().kind == tokSemicolon {
			p.next()
		}
		if k := p.peek().kind; k == tokEOF || k == tokRParen {
			break
		}
		n, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if p.peek().kind != tokSemicolon {
			break
		}
	}
	switch len(items) {
	case 0:
		return nil, syntaxErrorf(p.src, start, "empty expression")
	case 1:
		return items[0], nil
	default:
		return &sequenceNode{at: start, items: items}, nil
	}
}

func (p *parser) parseAssignment() (node, error) {
	t := p.peek()
	if t.kind == tokIdent && !keywords[t.text] {
		if nt := p.toks[p.i+1]; nt.kind == tokOp && nt.text == "=" {
			p.next()
			p.next()
			value, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			return &assignNode{at: t.pos, name: t.text, value: value}, nil
		}
	}
	return p.parseTernary()
}

func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokQuestion {
		return cond, nil
	}
	q := p.next()
	then, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokColon {
		return nil, syntaxErrorf(p.src, p.peek().pos, "expected ':' in conditional expression")
	}
	p.next()
	other, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{at: q.pos, cond: cond, then: then, other: other}, nil
}

func (p *parser) parseOr() (node, error) {
	return p.parseBinary(p.parseAnd, "or", "||")
}

func (p *parser) parseAnd() (node, error) {
	return p.parseBinary(p.parseEquality, "and", "&&")
}

func (p *parser) parseEquality() (node, error) {
	return p.parseBinary(p.parseRelational, "==", "!=")
}

func (p *parser) parseRelational() (node, error) {
	return p.parseBinary(p.parseAdditive, "<", "<=", ">", ">=")
}

func (p *parser) parseAdditive() (node, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

func (p *parser) parseMultiplicative() (node, error) {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

func (p *parser) parseBinary(operand func() (node, error), ops ...string) (node, error) {
	left, err := operand()
	if err != nil {
		return nil, err
	}
	for p.isOp(ops...) {
		t := p.next()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		left = &binaryNode{at: t.pos, op: t.text, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.isOp("not", "!", "-", "+") {
		t := p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		op := t.text
		if op == "!" {
			op = "not"
		}
		return &unaryNode{at: t.pos, op: op, operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		return &literalNode{at: t.pos, val: Number(t.num)}, nil
	case tokString:
		return &literalNode{at: t.pos, val: String(t.text)}, nil
	case tokLParen:
		inner, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, syntaxErrorf(p.src, p.peek().pos, "expected ')'")
		}
		p.next()
		return inner, nil
	case tokIdent:
		switch t.text {
		case "true":
			return &literalNode{at: t.pos, val: Bool(true)}, nil
		case "false":
			return &literalNode{at: t.pos, val: Bool(false)}, nil
		case "null":
			return &literalNode{at: t.pos, val: Null}, nil
		}
		if keywords[t.text] {
			return nil, syntaxErrorf(p.src, t.pos, "unexpected keyword %q", t.text)
		}
		if p.peek().kind == tokLParen {
			return p.parseCall(t)
		}
		return &identNode{at: t.pos, name: t.text}, nil
	case tokEOF:
		return nil, syntaxErrorf(p.src, t.pos, "unexpected end of expression")
	default:
		return nil, syntaxErrorf(p.src, t.pos, "unexpected %q", t.text)
	}
}

func (p *parser) parseCall(name token) (node, error) {
	p.next() // (
	call := &callNode{at: name.pos, name: name.text}
	if p.peek().kind == tokRParen {
		p.next()
		return call, nil
	}
	for {
		arg, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return call, nil
		default:
			return nil, syntaxErrorf(p.src, p.peek().pos, "expected ',' or ')' in call to %s", name.text)
		}
	}
}
