package cuda

import (
	"strings"

	"github.com/gogpu/lcgen/ir"
)

// stmtWriter renders statements. Each statement is written at the current
// position; nested blocks go through writeStatements.
type stmtWriter struct{ w *Writer }

func (w *Writer) writeStatement(s ir.Statement) error {
	return s.Accept(stmtWriter{w})
}

// writeStatements writes stmts one level deeper, each on its own line, and
// leaves the cursor on a fresh line at the original indentation.
func (w *Writer) writeStatements(stmts []ir.Statement) error {
	w.indent++
	wrote := false
	for _, s := range stmts {
		if s.Tag() == ir.StmtComment && !w.options.EmitComments {
			continue
		}
		w.newLine()
		if err := w.writeStatement(s); err != nil {
			return err
		}
		wrote = true
	}
	w.indent--
	if wrote {
		w.newLine()
	}
	return nil
}

func (x stmtWriter) VisitBreak(*ir.BreakStmt) error {
	x.w.write("break;")
	return nil
}

func (x stmtWriter) VisitContinue(*ir.ContinueStmt) error {
	x.w.write("continue;")
	return nil
}

func (x stmtWriter) VisitReturn(s *ir.ReturnStmt) error {
	x.w.write("return")
	if e := s.Expression(); e != nil {
		x.w.write(" ")
		if err := x.w.writeExpression(e); err != nil {
			return err
		}
	}
	x.w.write(";")
	return nil
}

func (x stmtWriter) VisitScope(s *ir.ScopeStmt) error {
	x.w.write("{")
	if err := x.w.writeStatements(s.Statements()); err != nil {
		return err
	}
	x.w.write("}")
	return nil
}

func (x stmtWriter) VisitIf(s *ir.IfStmt) error {
	x.w.write("if (")
	if err := x.w.writeExpression(s.Condition()); err != nil {
		return err
	}
	x.w.write(") ")
	if err := x.VisitScope(s.TrueBranch()); err != nil {
		return err
	}
	fb := s.FalseBranch()
	if fb.Len() == 0 {
		return nil
	}
	x.w.write(" else ")
	if elif, ok := fb.Statements()[0].(*ir.IfStmt); ok && fb.Len() == 1 {
		return x.VisitIf(elif)
	}
	return x.VisitScope(fb)
}

func (x stmtWriter) VisitLoop(s *ir.LoopStmt) error {
	x.w.write("for (;;) ")
	return x.VisitScope(s.Body())
}

func (x stmtWriter) VisitExpr(s *ir.ExprStmt) error {
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(";")
	return nil
}

func (x stmtWriter) VisitSwitch(s *ir.SwitchStmt) error {
	x.w.write("switch (")
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(") ")
	return x.VisitScope(s.Body())
}

func (x stmtWriter) VisitSwitchCase(s *ir.SwitchCaseStmt) error {
	x.w.write("case ")
	if err := x.w.writeExpression(s.Expression()); err != nil {
		return err
	}
	x.w.write(": ")
	return x.VisitScope(s.Body())
}

func (x stmtWriter) VisitSwitchDefault(s *ir.SwitchDefaultStmt) error {
	x.w.write("default: ")
	return x.VisitScope(s.Body())
}

func (x stmtWriter) VisitAssign(s *ir.AssignStmt) error {
	if err := x.w.writeExpression(s.LHS()); err != nil {
		return err
	}
	x.w.write(" = ")
	if err := x.w.writeExpression(s.RHS()); err != nil {
		return err
	}
	x.w.write(";")
	return nil
}

func (x stmtWriter) VisitFor(s *ir.ForStmt) error {
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
	x.w.write(") ")
	return x.VisitScope(s.Body())
}

func (x stmtWriter) VisitComment(s *ir.CommentStmt) error {
	x.w.write("/* %s */", strings.ReplaceAll(s.Comment(), "*/", "* /"))
	return nil
}

func (x stmtWriter) VisitRayQuery(s *ir.RayQueryStmt) error {
	if x.w.rayQueries == nil {
		return ir.NewErrorWithContext(ir.ErrConsistency, "ray_query statement",
			"ray query lowered before outlining")
	}
	return x.w.rayQueries.lower(s)
}
