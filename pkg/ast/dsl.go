package ast

// Builders for constructing trees by hand, mostly in tests.

func Prog(statements ...Statement) *Program {
	return NewProgram(statements)
}

func Blk(statements ...Statement) *Block {
	return NewBlock(statements)
}

func Sym(name string) *Symbol {
	return NewSymbol(name)
}

func Num(value int64) *Number {
	return NewNumber(value)
}

func Bool(value bool) *Boolean {
	return NewBoolean(value)
}

func Nul() *Null {
	return NewNull()
}

func Str(value string) *String {
	return NewString(value)
}

func Ever() *Forever {
	return NewForever()
}

func Set(name string, value Expression) *SetStatement {
	return NewSetStatement(Sym(name), value)
}

func If(condition Expression, then *Block, els *Block) *IfStatement {
	return NewIfStatement(condition, then, els)
}

func Times(count Expression, body ...Statement) *TimesStatement {
	return NewTimesStatement(count, Blk(body...))
}

func Call(callee Expression, args ...Expression) *CallExpression {
	return NewCallExpression(callee, args)
}

func CallStmt(callee Expression, args ...Expression) *CallStatement {
	return NewCallStatement(callee, args)
}

// Invoke is shorthand for a call statement whose callee is a symbol.
func Invoke(name string, args ...Expression) *CallStatement {
	return NewCallStatement(Sym(name), args)
}

// Apply is shorthand for a call expression whose callee is a symbol.
func Apply(name string, args ...Expression) *CallExpression {
	return NewCallExpression(Sym(name), args)
}

func Params(names ...string) *SymbolList {
	symbols := make([]*Symbol, 0, len(names))
	for _, name := range names {
		symbols = append(symbols, Sym(name))
	}
	return NewSymbolList(symbols)
}

func Fn(params []string, body ...Statement) *Function {
	return NewFunction(Params(params...), Blk(body...))
}
