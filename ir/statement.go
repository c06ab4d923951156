package ir

import "sync"

// StatementTag identifies the concrete kind of a Statement.
type StatementTag uint8

const (
	StmtBreak StatementTag = iota
	StmtContinue
	StmtReturn
	StmtScope
	StmtIf
	StmtLoop
	StmtExpr
	StmtSwitch
	StmtSwitchCase
	StmtSwitchDefault
	StmtAssign
	StmtFor
	StmtComment
	StmtRayQuery
)

// String returns a human-readable tag name.
func (t StatementTag) String() string {
	switch t {
	case StmtBreak:
		return "break"
	case StmtContinue:
		return "continue"
	case StmtReturn:
		return "return"
	case StmtScope:
		return "scope"
	case StmtIf:
		return "if"
	case StmtLoop:
		return "loop"
	case StmtExpr:
		return "expr"
	case StmtSwitch:
		return "switch"
	case StmtSwitchCase:
		return "switch_case"
	case StmtSwitchDefault:
		return "switch_default"
	case StmtAssign:
		return "assign"
	case StmtFor:
		return "for"
	case StmtComment:
		return "comment"
	case StmtRayQuery:
		return "ray_query"
	default:
		return "unknown"
	}
}

// Statement is a node of a function body.
type Statement interface {
	// Tag returns the node kind.
	Tag() StatementTag
	// Hash returns the structural hash of the statement and its children.
	Hash() uint64
	// Accept dispatches to the visitor method for the node's tag.
	Accept(v StmtVisitor) error

	computeHash() uint64
}

type stmtBase struct {
	tag  StatementTag
	node Statement

	hashOnce sync.Once
	hash     uint64
}

func (b *stmtBase) init(node Statement, tag StatementTag) {
	b.node = node
	b.tag = tag
}

func (b *stmtBase) Tag() StatementTag { return b.tag }

func (b *stmtBase) Hash() uint64 {
	b.hashOnce.Do(func() {
		b.hash = hash64(uint64(b.tag), b.node.computeHash())
	})
	return b.hash
}

// BreakStmt exits the innermost loop or switch.
type BreakStmt struct{ stmtBase }

func (s *BreakStmt) computeHash() uint64 { return 0 }

// ContinueStmt jumps to the next iteration of the innermost loop.
type ContinueStmt struct{ stmtBase }

func (s *ContinueStmt) computeHash() uint64 { return 0 }

// ReturnStmt returns from the function, optionally with a value.
type ReturnStmt struct {
	stmtBase
	expr Expression
}

// Expression returns the returned value, or nil.
func (s *ReturnStmt) Expression() Expression { return s.expr }

func (s *ReturnStmt) computeHash() uint64 {
	if s.expr == nil {
		return 0
	}
	return s.expr.Hash()
}

// ScopeStmt is an ordered block of statements.
type ScopeStmt struct {
	stmtBase
	stmts []Statement
}

func newScope() *ScopeStmt {
	s := &ScopeStmt{}
	s.init(s, StmtScope)
	return s
}

// Statements returns the children in order.
func (s *ScopeStmt) Statements() []Statement { return s.stmts }

// Len returns the number of children.
func (s *ScopeStmt) Len() int { return len(s.stmts) }

func (s *ScopeStmt) append(stmt Statement) { s.stmts = append(s.stmts, stmt) }

func (s *ScopeStmt) computeHash() uint64 {
	words := make([]uint64, len(s.stmts))
	for i, stmt := range s.stmts {
		words[i] = stmt.Hash()
	}
	return hash64(uint64(len(s.stmts)), words...)
}

// IfStmt branches on a boolean condition. Both branches are always present;
// an absent else branch is an empty scope.
type IfStmt struct {
	stmtBase
	cond        Expression
	trueBranch  *ScopeStmt
	falseBranch *ScopeStmt
}

func (s *IfStmt) Condition() Expression   { return s.cond }
func (s *IfStmt) TrueBranch() *ScopeStmt  { return s.trueBranch }
func (s *IfStmt) FalseBranch() *ScopeStmt { return s.falseBranch }

func (s *IfStmt) computeHash() uint64 {
	return hash64(s.cond.Hash(), s.trueBranch.Hash(), s.falseBranch.Hash())
}

// LoopStmt repeats its body until a break or return.
type LoopStmt struct {
	stmtBase
	body *ScopeStmt
}

func (s *LoopStmt) Body() *ScopeStmt { return s.body }

func (s *LoopStmt) computeHash() uint64 { return s.body.Hash() }

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	stmtBase
	expr Expression
}

func (s *ExprStmt) Expression() Expression { return s.expr }

func (s *ExprStmt) computeHash() uint64 { return s.expr.Hash() }

// SwitchStmt dispatches on an integer value. Its body holds only
// SwitchCaseStmt and SwitchDefaultStmt children.
type SwitchStmt struct {
	stmtBase
	expr Expression
	body *ScopeStmt
}

func (s *SwitchStmt) Expression() Expression { return s.expr }
func (s *SwitchStmt) Body() *ScopeStmt       { return s.body }

func (s *SwitchStmt) computeHash() uint64 { return hash64(s.expr.Hash(), s.body.Hash()) }

// SwitchCaseStmt is one labeled arm of a switch.
type SwitchCaseStmt struct {
	stmtBase
	expr Expression
	body *ScopeStmt
}

func (s *SwitchCaseStmt) Expression() Expression { return s.expr }
func (s *SwitchCaseStmt) Body() *ScopeStmt       { return s.body }

func (s *SwitchCaseStmt) computeHash() uint64 { return hash64(s.expr.Hash(), s.body.Hash()) }

// SwitchDefaultStmt is the default arm of a switch.
type SwitchDefaultStmt struct {
	stmtBase
	body *ScopeStmt
}

func (s *SwitchDefaultStmt) Body() *ScopeStmt { return s.body }

func (s *SwitchDefaultStmt) computeHash() uint64 { return s.body.Hash() }

// AssignStmt stores rhs into lhs.
type AssignStmt struct {
	stmtBase
	lhs, rhs Expression
}

func (s *AssignStmt) LHS() Expression { return s.lhs }
func (s *AssignStmt) RHS() Expression { return s.rhs }

func (s *AssignStmt) computeHash() uint64 { return hash64(s.lhs.Hash(), s.rhs.Hash()) }

// ForStmt loops while condition holds, adding step to variable after each
// iteration.
type ForStmt struct {
	stmtBase
	variable  Expression
	condition Expression
	step      Expression
	body      *ScopeStmt
}

func (s *ForStmt) Variable() Expression  { return s.variable }
func (s *ForStmt) Condition() Expression { return s.condition }
func (s *ForStmt) Step() Expression      { return s.step }
func (s *ForStmt) Body() *ScopeStmt      { return s.body }

func (s *ForStmt) computeHash() uint64 {
	return hash64(s.variable.Hash(), s.condition.Hash(), s.step.Hash(), s.body.Hash())
}

// CommentStmt carries a comment into the generated source.
type CommentStmt struct {
	stmtBase
	comment string
}

func (s *CommentStmt) Comment() string { return s.comment }

func (s *CommentStmt) computeHash() uint64 { return hashBytes(0, []byte(s.comment)) }

// RayQueryStmt traverses an acceleration structure with a ray query object,
// running one of its candidate bodies for every candidate intersection.
// The bodies are invoked by the traversal hardware, not by ordinary control flow.
type RayQueryStmt struct {
	stmtBase
	query        *RefExpr
	onTriangle   *ScopeStmt
	onProcedural *ScopeStmt
}

// Query returns the reference to the ray query object.
func (s *RayQueryStmt) Query() *RefExpr { return s.query }

// OnTriangleCandidate returns the body run for triangle candidates.
func (s *RayQueryStmt) OnTriangleCandidate() *ScopeStmt { return s.onTriangle }

// OnProceduralCandidate returns the body run for procedural candidates.
func (s *RayQueryStmt) OnProceduralCandidate() *ScopeStmt { return s.onProcedural }

func (s *RayQueryStmt) computeHash() uint64 {
	return hash64(s.query.Hash(), s.onTriangle.Hash(), s.onProcedural.Hash())
}
