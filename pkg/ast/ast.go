package ast

type NodeType string

const (
	NodeProgram        NodeType = "Program"
	NodeBlock          NodeType = "Block"
	NodeIfStatement    NodeType = "IfStatement"
	NodeTimesStatement NodeType = "TimesStatement"
	NodeSetStatement   NodeType = "SetStatement"
	NodeCallStatement  NodeType = "CallStatement"
	NodeCallExpression NodeType = "CallExpression"
	NodeFunction       NodeType = "Function"
	NodeSymbol         NodeType = "Symbol"
	NodeNumber         NodeType = "Number"
	NodeBoolean        NodeType = "Boolean"
	NodeNull           NodeType = "Null"
	NodeString         NodeType = "String"
	NodeForever        NodeType = "Forever"
	NodeSymbolList     NodeType = "SymbolList"
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span records the half-open byte range [From, To) a node was read from,
// plus the line/column of From for diagnostics.
type Span struct {
	From  int      `json:"from"`
	To    int      `json:"to"`
	Start Position `json:"start"`
}

// Text returns the slice of source covered by the span, or "" when the span
// does not fit the source.
func (s Span) Text(source string) string {
	if s.From < 0 || s.To > len(source) || s.From > s.To {
		return ""
	}
	return source[s.From:s.To]
}

// IsZero reports whether the span carries no position information.
func (s Span) IsZero() bool {
	return s == Span{}
}

// Node is implemented by every syntax tree node. The set of implementations
// is closed to this package.
type Node interface {
	NodeType() NodeType
	Span() Span
	// Children returns the node's children in location order. Absent optional
	// children (an if without else) are omitted.
	Children() []Node
	isNode()
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	Pos  Span     `json:"span"`
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.Pos }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.Pos = span }

// SetSpan annotates the node with the provided span.
func SetSpan(node Node, span Span) {
	if node == nil {
		return
	}
	if setter, ok := node.(interface{ setSpan(Span) }); ok {
		setter.setSpan(span)
	}
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Statement interface {
	Node
	statementNode()
}

type statementMarker struct{}

func (statementMarker) statementNode() {}

// Program

type Program struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewProgram(body []Statement) *Program {
	return &Program{nodeImpl: newNodeImpl(NodeProgram), Body: body}
}

func (n *Program) Children() []Node { return statementNodes(n.Body) }

// Block is an ordered statement list used as the body of if, times and
// function.
type Block struct {
	nodeImpl

	Body []Statement `json:"body"`
}

func NewBlock(body []Statement) *Block {
	return &Block{nodeImpl: newNodeImpl(NodeBlock), Body: body}
}

func (n *Block) Children() []Node { return statementNodes(n.Body) }

func statementNodes(body []Statement) []Node {
	out := make([]Node, 0, len(body))
	for _, stmt := range body {
		if stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

// Statements

// IfStatement children: 0 condition, 1 then, 2 else (optional).
type IfStatement struct {
	nodeImpl
	statementMarker

	Condition Expression `json:"condition"`
	Then      *Block     `json:"then"`
	Else      *Block     `json:"else,omitempty"`
}

func NewIfStatement(condition Expression, then, els *Block) *IfStatement {
	return &IfStatement{nodeImpl: newNodeImpl(NodeIfStatement), Condition: condition, Then: then, Else: els}
}

func (n *IfStatement) Children() []Node {
	out := make([]Node, 0, 3)
	if n.Condition != nil {
		out = append(out, n.Condition)
	}
	if n.Then != nil {
		out = append(out, n.Then)
	}
	if n.Else != nil {
		out = append(out, n.Else)
	}
	return out
}

// TimesStatement children: 0 count (Number, Symbol or Forever), 1 body.
type TimesStatement struct {
	nodeImpl
	statementMarker

	Count Expression `json:"count"`
	Body  *Block     `json:"body"`
}

func NewTimesStatement(count Expression, body *Block) *TimesStatement {
	return &TimesStatement{nodeImpl: newNodeImpl(NodeTimesStatement), Count: count, Body: body}
}

func (n *TimesStatement) Children() []Node {
	out := make([]Node, 0, 2)
	if n.Count != nil {
		out = append(out, n.Count)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

// SetStatement children: 0 name, 1 value.
type SetStatement struct {
	nodeImpl
	statementMarker

	Name  *Symbol    `json:"name"`
	Value Expression `json:"value"`
}

func NewSetStatement(name *Symbol, value Expression) *SetStatement {
	return &SetStatement{nodeImpl: newNodeImpl(NodeSetStatement), Name: name, Value: value}
}

func (n *SetStatement) Children() []Node {
	out := make([]Node, 0, 2)
	if n.Name != nil {
		out = append(out, n.Name)
	}
	if n.Value != nil {
		out = append(out, n.Value)
	}
	return out
}

// CallStatement is a call in statement position; children: 0 callee, 1.. args.
type CallStatement struct {
	nodeImpl
	statementMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallStatement(callee Expression, args []Expression) *CallStatement {
	return &CallStatement{nodeImpl: newNodeImpl(NodeCallStatement), Callee: callee, Arguments: args}
}

func (n *CallStatement) Children() []Node { return callNodes(n.Callee, n.Arguments) }

// Expressions

type CallExpression struct {
	nodeImpl
	expressionMarker

	Callee    Expression   `json:"callee"`
	Arguments []Expression `json:"arguments"`
}

func NewCallExpression(callee Expression, args []Expression) *CallExpression {
	return &CallExpression{nodeImpl: newNodeImpl(NodeCallExpression), Callee: callee, Arguments: args}
}

func (n *CallExpression) Children() []Node { return callNodes(n.Callee, n.Arguments) }

func callNodes(callee Expression, args []Expression) []Node {
	out := make([]Node, 0, len(args)+1)
	if callee != nil {
		out = append(out, callee)
	}
	for _, arg := range args {
		if arg != nil {
			out = append(out, arg)
		}
	}
	return out
}

// Function children: 0 parameters, 1 body.
type Function struct {
	nodeImpl
	expressionMarker

	Params *SymbolList `json:"params"`
	Body   *Block      `json:"body"`
}

func NewFunction(params *SymbolList, body *Block) *Function {
	return &Function{nodeImpl: newNodeImpl(NodeFunction), Params: params, Body: body}
}

func (n *Function) Children() []Node {
	out := make([]Node, 0, 2)
	if n.Params != nil {
		out = append(out, n.Params)
	}
	if n.Body != nil {
		out = append(out, n.Body)
	}
	return out
}

// ParamNames returns the parameter names in declaration order.
func (n *Function) ParamNames() []string {
	if n.Params == nil {
		return nil
	}
	names := make([]string, 0, len(n.Params.Symbols))
	for _, sym := range n.Params.Symbols {
		names = append(names, sym.Name)
	}
	return names
}

type SymbolList struct {
	nodeImpl

	Symbols []*Symbol `json:"symbols"`
}

func NewSymbolList(symbols []*Symbol) *SymbolList {
	return &SymbolList{nodeImpl: newNodeImpl(NodeSymbolList), Symbols: symbols}
}

func (n *SymbolList) Children() []Node {
	out := make([]Node, 0, len(n.Symbols))
	for _, sym := range n.Symbols {
		out = append(out, sym)
	}
	return out
}

// Leaves

type Symbol struct {
	nodeImpl
	expressionMarker

	Name string `json:"value"`
}

func NewSymbol(name string) *Symbol {
	return &Symbol{nodeImpl: newNodeImpl(NodeSymbol), Name: name}
}

type Number struct {
	nodeImpl
	expressionMarker

	Value int64 `json:"value"`
}

func NewNumber(value int64) *Number {
	return &Number{nodeImpl: newNodeImpl(NodeNumber), Value: value}
}

type Boolean struct {
	nodeImpl
	expressionMarker

	Value bool `json:"value"`
}

func NewBoolean(value bool) *Boolean {
	return &Boolean{nodeImpl: newNodeImpl(NodeBoolean), Value: value}
}

type Null struct {
	nodeImpl
	expressionMarker
}

func NewNull() *Null {
	return &Null{nodeImpl: newNodeImpl(NodeNull)}
}

type String struct {
	nodeImpl
	expressionMarker

	Value string `json:"value"`
}

func NewString(value string) *String {
	return &String{nodeImpl: newNodeImpl(NodeString), Value: value}
}

// Forever is the unbounded count of a times statement.
type Forever struct {
	nodeImpl
	expressionMarker
}

func NewForever() *Forever {
	return &Forever{nodeImpl: newNodeImpl(NodeForever)}
}

func (*Symbol) Children() []Node  { return nil }
func (*Number) Children() []Node  { return nil }
func (*Boolean) Children() []Node { return nil }
func (*Null) Children() []Node    { return nil }
func (*String) Children() []Node  { return nil }
func (*Forever) Children() []Node { return nil }
