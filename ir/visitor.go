package ir

// ExprVisitor has one method per expression tag.
type ExprVisitor interface {
	VisitUnary(e *UnaryExpr) error
	VisitBinary(e *BinaryExpr) error
	VisitMember(e *MemberExpr) error
	VisitAccess(e *AccessExpr) error
	VisitLiteral(e *LiteralExpr) error
	VisitRef(e *RefExpr) error
	VisitConstant(e *ConstantExpr) error
	VisitCall(e *CallExpr) error
	VisitCast(e *CastExpr) error
	VisitCPUCustom(e *CPUCustomExpr) error
	VisitGPUCustom(e *GPUCustomExpr) error
}

func (e *UnaryExpr) Accept(v ExprVisitor) error     { return v.VisitUnary(e) }
func (e *BinaryExpr) Accept(v ExprVisitor) error    { return v.VisitBinary(e) }
func (e *MemberExpr) Accept(v ExprVisitor) error    { return v.VisitMember(e) }
func (e *AccessExpr) Accept(v ExprVisitor) error    { return v.VisitAccess(e) }
func (e *LiteralExpr) Accept(v ExprVisitor) error   { return v.VisitLiteral(e) }
func (e *RefExpr) Accept(v ExprVisitor) error       { return v.VisitRef(e) }
func (e *ConstantExpr) Accept(v ExprVisitor) error  { return v.VisitConstant(e) }
func (e *CallExpr) Accept(v ExprVisitor) error      { return v.VisitCall(e) }
func (e *CastExpr) Accept(v ExprVisitor) error      { return v.VisitCast(e) }
func (e *CPUCustomExpr) Accept(v ExprVisitor) error { return v.VisitCPUCustom(e) }
func (e *GPUCustomExpr) Accept(v ExprVisitor) error { return v.VisitGPUCustom(e) }

// StmtVisitor has one method per statement tag.
type StmtVisitor interface {
	VisitBreak(s *BreakStmt) error
	VisitContinue(s *ContinueStmt) error
	VisitReturn(s *ReturnStmt) error
	VisitScope(s *ScopeStmt) error
	VisitIf(s *IfStmt) error
	VisitLoop(s *LoopStmt) error
	VisitExpr(s *ExprStmt) error
	VisitSwitch(s *SwitchStmt) error
	VisitSwitchCase(s *SwitchCaseStmt) error
	VisitSwitchDefault(s *SwitchDefaultStmt) error
	VisitAssign(s *AssignStmt) error
	VisitFor(s *ForStmt) error
	VisitComment(s *CommentStmt) error
	VisitRayQuery(s *RayQueryStmt) error
}

func (s *BreakStmt) Accept(v StmtVisitor) error         { return v.VisitBreak(s) }
func (s *ContinueStmt) Accept(v StmtVisitor) error      { return v.VisitContinue(s) }
func (s *ReturnStmt) Accept(v StmtVisitor) error        { return v.VisitReturn(s) }
func (s *ScopeStmt) Accept(v StmtVisitor) error         { return v.VisitScope(s) }
func (s *IfStmt) Accept(v StmtVisitor) error            { return v.VisitIf(s) }
func (s *LoopStmt) Accept(v StmtVisitor) error          { return v.VisitLoop(s) }
func (s *ExprStmt) Accept(v StmtVisitor) error          { return v.VisitExpr(s) }
func (s *SwitchStmt) Accept(v StmtVisitor) error        { return v.VisitSwitch(s) }
func (s *SwitchCaseStmt) Accept(v StmtVisitor) error    { return v.VisitSwitchCase(s) }
func (s *SwitchDefaultStmt) Accept(v StmtVisitor) error { return v.VisitSwitchDefault(s) }
func (s *AssignStmt) Accept(v StmtVisitor) error        { return v.VisitAssign(s) }
func (s *ForStmt) Accept(v StmtVisitor) error           { return v.VisitFor(s) }
func (s *CommentStmt) Accept(v StmtVisitor) error       { return v.VisitComment(s) }
func (s *RayQueryStmt) Accept(v StmtVisitor) error      { return v.VisitRayQuery(s) }

// Operands returns the direct child expressions of e in evaluation order.
func Operands(e Expression) []Expression {
	switch e := e.(type) {
	case *UnaryExpr:
		return []Expression{e.operand}
	case *BinaryExpr:
		return []Expression{e.lhs, e.rhs}
	case *MemberExpr:
		return []Expression{e.self}
	case *AccessExpr:
		return []Expression{e.rng, e.index}
	case *CallExpr:
		return e.args
	case *CastExpr:
		return []Expression{e.expr}
	case *CPUCustomExpr:
		return []Expression{e.arg}
	case *GPUCustomExpr:
		return []Expression{e.arg}
	default:
		return nil
	}
}

// StatementExpressions returns the expressions held directly by s,
// not including those inside nested scopes.
func StatementExpressions(s Statement) []Expression {
	switch s := s.(type) {
	case *ReturnStmt:
		if s.expr != nil {
			return []Expression{s.expr}
		}
	case *IfStmt:
		return []Expression{s.cond}
	case *ExprStmt:
		return []Expression{s.expr}
	case *SwitchStmt:
		return []Expression{s.expr}
	case *SwitchCaseStmt:
		return []Expression{s.expr}
	case *AssignStmt:
		return []Expression{s.lhs, s.rhs}
	case *ForStmt:
		return []Expression{s.variable, s.condition, s.step}
	case *RayQueryStmt:
		return []Expression{s.query}
	}
	return nil
}

// StatementScopes returns the nested scopes of s in source order.
func StatementScopes(s Statement) []*ScopeStmt {
	switch s := s.(type) {
	case *ScopeStmt:
		return []*ScopeStmt{s}
	case *IfStmt:
		return []*ScopeStmt{s.trueBranch, s.falseBranch}
	case *LoopStmt:
		return []*ScopeStmt{s.body}
	case *SwitchStmt:
		return []*ScopeStmt{s.body}
	case *SwitchCaseStmt:
		return []*ScopeStmt{s.body}
	case *SwitchDefaultStmt:
		return []*ScopeStmt{s.body}
	case *ForStmt:
		return []*ScopeStmt{s.body}
	case *RayQueryStmt:
		return []*ScopeStmt{s.onTriangle, s.onProcedural}
	}
	return nil
}

// InspectExpression calls f for e and, while f returns true, for each of its
// operands, depth-first. Callee bodies are not entered.
func InspectExpression(e Expression, f func(Expression) bool) {
	if e == nil || !f(e) {
		return
	}
	for _, op := range Operands(e) {
		InspectExpression(op, f)
	}
}

// InspectStatement calls f for s and, while f returns true, for every
// statement nested inside it, depth-first in source order. A ScopeStmt is
// visited itself before its children.
func InspectStatement(s Statement, f func(Statement) bool) {
	if s == nil || !f(s) {
		return
	}
	if scope, ok := s.(*ScopeStmt); ok {
		for _, child := range scope.stmts {
			InspectStatement(child, f)
		}
		return
	}
	for _, scope := range StatementScopes(s) {
		InspectStatement(scope, f)
	}
}
