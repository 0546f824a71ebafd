package lang

import (
	"fmt"

	"roverc/ast"
	"roverc/types"
)

// Parser is a hand-written recursive-descent parser over a single
// token of lookahead, mirroring the grammar's structure one rule per
// method: blocks are delimited by start/end rather than braces, and
// exec is its own statement/expression form for calling a function by
// name.
type Parser struct {
	lex *Lexer
	cur Token
}

// NewParser creates a Parser over src and primes its first token.
func NewParser(src string) (*Parser, error) {
	p := &Parser{lex: NewLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.cur.Line, fmt.Sprintf(format, args...))
}

func (p *Parser) expect(kind TokenKind) (Token, error) {
	if p.cur.Kind != kind {
		return Token{}, p.errorf("expected %s, got %s", kind, p.cur.Kind)
	}
	tok := p.cur
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *Parser) accept(kind TokenKind) bool {
	if p.cur.Kind == kind {
		p.advance()
		return true
	}
	return false
}

func pos(tok Token) ast.Position { return ast.Position{Line: tok.Line, Col: tok.Col} }

func baseType(tok Token) (types.Base, error) {
	switch tok.Text {
	case "int":
		return types.Int, nil
	case "double":
		return types.Double, nil
	case "char":
		return types.Char, nil
	case "bool":
		return types.Bool, nil
	case "void":
		return types.Void, nil
	default:
		return 0, fmt.Errorf("line %d: unknown type name %q", tok.Line, tok.Text)
	}
}

// ParseProgram parses a whole source file: a sequence of function
// declarations and top-level blocks.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Kind != TokEOF {
		switch p.cur.Kind {
		case TokType:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			prog.Items = append(prog.Items, fn)
		case TokStart:
			block, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			prog.Items = append(prog.Items, block)
		default:
			return nil, p.errorf("expected a type (function declaration) or 'start', got %s", p.cur.Kind)
		}
	}
	return prog, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	start := p.cur
	retTok, err := p.expect(TokType)
	if err != nil {
		return nil, err
	}
	retBase, err := baseType(retTok)
	if err != nil {
		return nil, err
	}
	p.accept(TokFunction)
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Position:   pos(start),
		Name:       nameTok.Text,
		Params:     params,
		ReturnType: types.Scalar(retBase),
		Body:       body,
	}, nil
}

func (p *Parser) parseParams() ([]*ast.Param, error) {
	var params []*ast.Param
	if p.cur.Kind == TokRParen {
		return params, nil
	}
	for {
		typTok, err := p.expect(TokType)
		if err != nil {
			return nil, err
		}
		base, err := baseType(typTok)
		if err != nil {
			return nil, err
		}
		nameTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		params = append(params, &ast.Param{Position: pos(nameTok), Name: nameTok.Text, Type: types.Scalar(base)})
		if !p.accept(TokComma) {
			break
		}
	}
	return params, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	start, err := p.expect(TokStart)
	if err != nil {
		return nil, err
	}
	block := &ast.Block{Position: pos(start)}
	for p.cur.Kind != TokEnd {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, err := p.expect(TokEnd); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur.Kind {
	case TokType:
		typTok, err := p.expect(TokType)
		if err != nil {
			return nil, err
		}
		decl, err := p.parseDecl(typTok)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return decl, nil
	case TokIdent:
		nameTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		assign, err := p.parseAssign(nameTok)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return assign, nil
	case TokFor:
		p.advance()
		return p.parseFor()
	case TokWhile:
		p.advance()
		return p.parseWhile()
	case TokIf:
		p.advance()
		return p.parseIf()
	case TokExec:
		p.advance()
		exec, err := p.parseExecCall()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return exec, nil
	case TokReturn:
		ret, err := p.parseReturn()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokSemicolon); err != nil {
			return nil, err
		}
		return ret, nil
	default:
		return nil, p.errorf("unexpected token %s in statement position", p.cur.Kind)
	}
}

// parseDecl handles `TYPE name;`, `TYPE name = value;` and
// `TYPE name[size];`. The caller consumes the trailing semicolon.
func (p *Parser) parseDecl(typTok Token) (ast.Node, error) {
	base, err := baseType(typTok)
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	switch p.cur.Kind {
	case TokSemicolon:
		return &ast.VarDecl{Position: pos(nameTok), Name: nameTok.Text, Type: types.Scalar(base)}, nil
	case TokAssign:
		p.advance()
		value, err := p.parseAssignValue()
		if err != nil {
			return nil, err
		}
		return &ast.VarDecl{Position: pos(nameTok), Name: nameTok.Text, Type: types.Scalar(base), Init: value}, nil
	case TokLBracket:
		p.advance()
		sizeTok, err := p.expect(TokIntLit)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		return &ast.ArrayDecl{Position: pos(nameTok), Name: nameTok.Text, Elem: types.Scalar(base), Size: int(sizeTok.Int)}, nil
	default:
		return nil, p.errorf("expected ';', '=' or '[' after declared name %q, got %s", nameTok.Text, p.cur.Kind)
	}
}

// parseAssignValue handles the value side of `name = value;`, where
// value is either an ordinary expression or an array literal.
func (p *Parser) parseAssignValue() (ast.Node, error) {
	if p.cur.Kind == TokLBracket {
		start := p.cur
		p.advance()
		lit := &ast.ArrayLiteral{Position: pos(start)}
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, elem)
		for p.accept(TokComma) {
			elem, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			lit.Elements = append(lit.Elements, elem)
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		return lit, nil
	}
	return p.parseExpression()
}

// parseAssign handles `name = value` and `name[index] = value`,
// assuming nameTok has already been consumed.
func (p *Parser) parseAssign(nameTok Token) (*ast.Assign, error) {
	var target ast.Node
	if p.cur.Kind == TokLBracket {
		p.advance()
		index, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRBracket); err != nil {
			return nil, err
		}
		target = &ast.IndexedId{Position: pos(nameTok), Name: nameTok.Text, Index: index}
	} else {
		target = &ast.Id{Position: pos(nameTok), Name: nameTok.Text}
	}
	if _, err := p.expect(TokAssign); err != nil {
		return nil, err
	}
	value, err := p.parseAssignValue()
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Position: pos(nameTok), Target: target, Value: value}, nil
}

func (p *Parser) parseFor() (*ast.For, error) {
	start, err := p.expect(TokLParen)
	if err != nil {
		return nil, err
	}
	var initNode ast.Node
	switch p.cur.Kind {
	case TokType:
		typTok, err := p.expect(TokType)
		if err != nil {
			return nil, err
		}
		initNode, err = p.parseDecl(typTok)
		if err != nil {
			return nil, err
		}
	case TokIdent:
		nameTok, err := p.expect(TokIdent)
		if err != nil {
			return nil, err
		}
		initNode, err = p.parseAssign(nameTok)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokSemicolon); err != nil {
		return nil, err
	}
	updateName, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	update, err := p.parseAssign(updateName)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Position: pos(start), Init: initNode, Cond: cond, Update: update, Body: body}, nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	start, err := p.expect(TokLParen)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Position: pos(start), Cond: cond, Body: body}, nil
}

func (p *Parser) parseIf() (*ast.If, error) {
	start, err := p.expect(TokLParen)
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	var elseBlock *ast.Block
	if p.accept(TokElse) {
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
	}
	return &ast.If{Position: pos(start), Cond: cond, Then: then, Else: elseBlock}, nil
}

func (p *Parser) parseExecCall() (*ast.Exec, error) {
	nameTok, err := p.expect(TokIdent)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen); err != nil {
		return nil, err
	}
	args, err := p.parseArgs()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen); err != nil {
		return nil, err
	}
	return &ast.Exec{Position: pos(nameTok), Name: nameTok.Text, Args: args}, nil
}

func (p *Parser) parseArgs() ([]ast.Node, error) {
	var args []ast.Node
	if p.cur.Kind == TokRParen {
		return args, nil
	}
	arg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	args = append(args, arg)
	for p.accept(TokComma) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (p *Parser) parseReturn() (*ast.Return, error) {
	start, err := p.expect(TokReturn)
	if err != nil {
		return nil, err
	}
	if p.cur.Kind == TokSemicolon {
		return &ast.Return{Position: pos(start)}, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.Return{Position: pos(start), Value: value}, nil
}

func (p *Parser) parseExpression() (ast.Node, error) { return p.parseOr() }

func (p *Parser) parseOr() (ast.Node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokOr {
		start := p.cur
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Position: pos(start), Op: ast.OR, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokAnd {
		start := p.cur
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Position: pos(start), Op: ast.AND, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Node, error) {
	if p.cur.Kind == TokNot {
		start := p.cur
		p.advance()
		operand, err := p.parseRel()
		if err != nil {
			return nil, err
		}
		return &ast.UnOp{Position: pos(start), Op: ast.NOT, Operand: operand}, nil
	}
	return p.parseRel()
}

var relOps = map[TokenKind]ast.BinOpKind{
	TokEq: ast.EQ, TokNeq: ast.NE, TokLt: ast.LT, TokGt: ast.GT, TokLeq: ast.LE, TokGeq: ast.GE,
}

func (p *Parser) parseRel() (ast.Node, error) {
	left, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := relOps[p.cur.Kind]
		if !ok {
			return left, nil
		}
		start := p.cur
		p.advance()
		right, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Position: pos(start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseSum() (ast.Node, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokAdd || p.cur.Kind == TokMinus {
		start := p.cur
		op := ast.ADD
		if p.cur.Kind == TokMinus {
			op = ast.SUB
		}
		p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Position: pos(start), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMul() (ast.Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Kind == TokMult || p.cur.Kind == TokDiv || p.cur.Kind == TokMod {
		start := p.cur
		var op ast.BinOpKind
		switch p.cur.Kind {
		case TokMult:
			op = ast.MUL
		case TokDiv:
			op = ast.DIV
		default:
			op = ast.MOD
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Position: pos(start), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Node, error) {
	if p.cur.Kind == TokMinus {
		start := p.cur
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnOp{Position: pos(start), Op: ast.NEG, Operand: operand}, nil
	}
	return p.parseTerm()
}

func (p *Parser) parseTerm() (ast.Node, error) {
	tok := p.cur
	switch tok.Kind {
	case TokIntLit:
		p.advance()
		return &ast.IntLit{Position: pos(tok), Value: tok.Int}, nil
	case TokDoubleLit:
		p.advance()
		return &ast.FloatLit{Position: pos(tok), Value: tok.Double}, nil
	case TokTrue:
		p.advance()
		return &ast.BoolLit{Position: pos(tok), Value: true}, nil
	case TokFalse:
		p.advance()
		return &ast.BoolLit{Position: pos(tok), Value: false}, nil
	case TokCharLit:
		p.advance()
		return &ast.CharLit{Position: pos(tok), Value: tok.Char}, nil
	case TokIdent:
		p.advance()
		if p.cur.Kind == TokLBracket {
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			return &ast.IndexedId{Position: pos(tok), Name: tok.Text, Index: index}, nil
		}
		return &ast.Id{Position: pos(tok), Name: tok.Text}, nil
	case TokExec:
		p.advance()
		return p.parseExecCall()
	case TokLParen:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return expr, nil
	default:
		return nil, p.errorf("unexpected token %s in expression", tok.Kind)
	}
}
