package msl

import (
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// stmtWriter renders statements one per line at the current indentation.
type stmtWriter struct{ w *Writer }

// writeStatement writes a single statement.
func (w *Writer) writeStatement(s ir.Statement) error {
	return s.Accept(stmtWriter{w})
}

// writeBlock writes stmts one level deeper.
func (w *Writer) writeBlock(stmts []ir.Statement) error {
	w.pushIndent()
	defer w.popIndent()
	for _, s := range stmts {
		if s.Tag() == ir.StmtComment && !w.options.EmitComments {
			continue
		}
		if err := w.writeStatement(s); err != nil {
			return err
		}
	}
	return nil
}

func (x stmtWriter) VisitBreak(*ir.BreakStmt) error {
	x.w.writeLine("break;")
	return nil
}

func (x stmtWriter) VisitContinue(*ir.ContinueStmt) error {
	x.w.writeLine("continue;")
	return nil
}

func (x stmtWriter) VisitReturn(s *ir.ReturnStmt) error {
	x.w.writeIndent()
	x.w.write("return")
	if e := s.Expression(); e != nil {
		x.w.write(" ")
		if err := x.w.writeExpression(e); err != nil {
			return err
		}
	}
	x.w.write(";\n")
	return nil
}

func (x stmtWriter) VisitScope(s *ir.ScopeStmt) error {
	x.w.writeLine("{")
	if err := x.w.writeBlock(s.Statements()); err != nil {
		return err
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitIf(s *ir.IfStmt) error {
	x.w.writeIndent()
	if err := x.writeIf(s); err != nil {
		return err
	}
	x.w.write("\n")
	return nil
}

// writeIf writes an if chain starting at the current position and stops
// after the closing brace of the last branch.
func (x stmtWriter) writeIf(s *ir.IfStmt) error {
	x.w.write("if (")
	if err := x.w.writeExpression(s.Condition()); err != nil {
		return err
	}
	x.w.write(") {\n")
	if err := x.w.writeBlock(s.TrueBranch().Statements()); err != nil {
		return err
	}
	x.w.writeIndent()
	x.w.write("}")

	fb := s.FalseBranch()
	if fb.Len() == 0 {
		return nil
	}
	x.w.write(" else ")
	if elif, ok := fb.Statements()[0].(*ir.IfStmt); ok && fb.Len() == 1 {
		return x.writeIf(elif)
	}
	x.w.write("{\n")
	if err := x.w.writeBlock(fb.Statements()); err != nil {
		return err
	}
	x.w.writeIndent()
	x.w.write("}")
	return nil
}

func (x stmtWriter) VisitLoop(s *ir.LoopStmt) error {
	x.w.writeLine("while (true) {")
	if err := x.w.writeBlock(s.Body().Statements()); err != nil {
		return err
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitExpr(s *ir.ExprStmt) error {
	x.w.writeIndent()
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(";\n")
	return nil
}

func (x stmtWriter) VisitSwitch(s *ir.SwitchStmt) error {
	x.w.writeIndent()
	x.w.write("switch (")
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(") {\n")
	// Case labels sit at the switch's own indentation.
	for _, c := range s.Body().Statements() {
		if err := x.w.writeStatement(c); err != nil {
			return err
		}
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitSwitchCase(s *ir.SwitchCaseStmt) error {
	x.w.writeIndent()
	x.w.write("case ")
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(": {\n")
	if err := x.w.writeBlock(s.Body().Statements()); err != nil {
		return err
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitSwitchDefault(s *ir.SwitchDefaultStmt) error {
	x.w.writeLine("default: {")
	if err := x.w.writeBlock(s.Body().Statements()); err != nil {
		return err
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitAssign(s *ir.AssignStmt) error {
	if call, ok := s.RHS().(*ir.CallExpr); ok && (call.Op() == ir.CallQueryAll || call.Op() == ir.CallQueryAny) {
		return x.writeQueryReset(s.LHS(), call)
	}
	x.w.writeIndent()
	if err := x.w.writeExpression(s.LHS()); err != nil {
		return err
	}
	x.w.write(" = ")
	if err := x.w.writeExpression(s.RHS()); err != nil {
		return err
	}
	x.w.write(";\n")
	return nil
}

// writeQueryReset starts an intersection query in place of assigning it.
func (x stmtWriter) writeQueryReset(query ir.Expression, call *ir.CallExpr) error {
	args := call.Arguments()
	x.w.writeIndent()
	if err := x.w.writeExpression(query); err != nil {
		return err
	}
	x.w.write(".reset(_lc_ray(")
	if err := x.w.writeExpression(args[1]); err != nil {
		return err
	}
	x.w.write("), ")
	if err := x.w.writeExpression(args[0]); err != nil {
		return err
	}
	x.w.write(", _lc_query_params(%t));\n", call.Op() == ir.CallQueryAny)
	return nil
}

func (x stmtWriter) VisitFor(s *ir.ForStmt) error {
	x.w.writeIndent()
	x.w.write("for (; ")
	if err := x.w.writeExpression(s.Condition()); err != nil {
		return err
	}
	x.w.write("; ")
	if err := x.w.writeExpression(s.Variable()); err != nil {
		return err
	}
	x.w.write(" += ")
	if err := x.w.writeExpression(s.Step()); err != nil {
		return err
	}
	x.w.write(") {\n")
	if err := x.w.writeBlock(s.Body().Statements()); err != nil {
		return err
	}
	x.w.writeLine("}")
	return nil
}

func (x stmtWriter) VisitComment(s *ir.CommentStmt) error {
	x.w.writeLine("/* %s */", strings.ReplaceAll(s.Comment(), "*/", "* /"))
	return nil
}

// VisitRayQuery lowers a ray query inline: Metal hands each candidate back
// to the caller, so both bodies run inside the next() loop.
func (x stmtWriter) VisitRayQuery(s *ir.RayQueryStmt) error {
	w := x.w
	prev := w.currentQuery
	w.currentQuery = variableName(s.Query().Variable())
	defer func() { w.currentQuery = prev }()

	w.writeLine("while (%s.next()) {", w.currentQuery)
	w.pushIndent()
	w.writeLine("if (%s.get_candidate_intersection_type() == %sintersection_type::triangle) {", w.currentQuery, rtNamespace)
	if err := w.writeBlock(s.OnTriangleCandidate().Statements()); err != nil {
		return err
	}
	w.writeLine("} else {")
	if err := w.writeBlock(s.OnProceduralCandidate().Statements()); err != nil {
		return err
	}
	w.writeLine("}")
	w.popIndent()
	w.writeLine("}")
	return nil
}
