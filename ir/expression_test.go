package ir

import (
	"math"
	"testing"
)

func TestLiteralHashStability(t *testing.T) {
	a := NewArena()
	b := a.NewKernel("hash")

	x := b.Literal(LiteralFloat(1.5))
	y := b.Literal(LiteralFloat(1.5))
	z := b.Literal(LiteralFloat(2.5))
	i := b.Literal(LiteralInt(1069547520)) // same bits as 1.5f

	h := x.Hash()
	for n := 0; n < 3; n++ {
		if x.Hash() != h {
			t.Fatalf("Hash() changed between calls: %x != %x", x.Hash(), h)
		}
	}
	if x.Hash() != y.Hash() {
		t.Errorf("Expected identical literals to hash equal, got %x and %x", x.Hash(), y.Hash())
	}
	if x.Hash() == z.Hash() {
		t.Error("Expected different literal values to hash differently")
	}
	if x.Hash() == i.Hash() {
		t.Error("Expected int and float literals with equal bits to hash differently")
	}
}

func TestLiteralHashAcrossArenas(t *testing.T) {
	lit := func() Expression {
		return NewArena().NewKernel("k").Literal(LiteralVector{Components: []LiteralValue{
			LiteralFloat(1), LiteralFloat(2), LiteralFloat(3),
		}})
	}
	if lit().Hash() != lit().Hash() {
		t.Error("Expected structurally identical literals in different arenas to hash equal")
	}
}

func TestExpressionHashDiscrimination(t *testing.T) {
	a := NewArena()
	b := a.NewKernel("hash")
	v := b.Local(Float())

	add := b.Binary(Float(), BinaryAdd, b.Ref(v), b.Literal(LiteralFloat(1)))
	sub := b.Binary(Float(), BinarySub, b.Ref(v), b.Literal(LiteralFloat(1)))
	add2 := b.Binary(Float(), BinaryAdd, b.Ref(v), b.Literal(LiteralFloat(1)))
	if add.Hash() == sub.Hash() {
		t.Error("Expected + and - to hash differently")
	}
	if add.Hash() != add2.Hash() {
		t.Error("Expected identical binary trees to hash equal")
	}

	w := b.Local(Float())
	if b.Ref(v).Hash() == b.Ref(w).Hash() {
		t.Error("Expected references to different variables to hash differently")
	}
	if err := b.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMarkPropagation(t *testing.T) {
	a := NewArena()
	b := a.NewKernel("mark")
	s := b.Local(Struct(0, Float(), Float()))
	arr := b.Local(Array(Float(), 4))
	idx := b.Local(Uint())

	// s.m1 = arr[idx]
	b.Assign(
		b.Member(b.Ref(s), 1),
		b.Access(b.Ref(arr), b.Ref(idx)),
	)
	f, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	tests := []struct {
		name string
		v    Variable
		want Usage
	}{
		{"written struct", s, UsageWrite},
		{"read array", arr, UsageRead},
		{"index", idx, UsageRead},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.VariableUsage(tt.v.UID()); got != tt.want {
				t.Errorf("usage = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkMonotonic(t *testing.T) {
	a := NewArena()
	b := a.NewKernel("mono")
	v := b.Local(Float())
	ref := b.Ref(v)
	ref.Mark(UsageReadWrite)
	ref.Mark(UsageRead)
	ref.Mark(UsageWrite)
	if ref.Usage() != UsageReadWrite {
		t.Errorf("expression usage = %v, want read_write", ref.Usage())
	}
	if got := b.Function().VariableUsage(v.UID()); got != UsageReadWrite {
		t.Errorf("variable usage = %v, want read_write", got)
	}
}

func TestMutatingBuiltinMarksFirstArgument(t *testing.T) {
	a := NewArena()
	b := a.NewKernel("write")
	out := b.BufferArgument(Float())
	in := b.BufferArgument(Float())
	i := b.DispatchID()

	value := b.Call(Float(), CallBufferRead, b.Ref(in), b.Swizzle(b.Ref(i), 0))
	b.Expr(b.Call(nil, CallBufferWrite, b.Ref(out), b.Swizzle(b.Ref(i), 0), value))
	f, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish() error = %v", err)
	}
	if got := f.VariableUsage(out.UID()); got != UsageWrite {
		t.Errorf("out usage = %v, want write", got)
	}
	if got := f.VariableUsage(in.UID()); got != UsageRead {
		t.Errorf("in usage = %v, want read", got)
	}
}

func TestNewExpressionNotImplemented(t *testing.T) {
	e, err := NewExpression(ExprLiteral)
	if e != nil {
		t.Error("Expected no expression")
	}
	if !IsKind(err, ErrNotImplemented) {
		t.Errorf("Expected NotImplemented, got %v", err)
	}
}

func TestConstantDataHash(t *testing.T) {
	c1, err := NewConstantData(LiteralFloat(1), LiteralFloat(2))
	if err != nil {
		t.Fatal(err)
	}
	c2, _ := NewConstantData(LiteralFloat(1), LiteralFloat(2))
	c3, _ := NewConstantData(LiteralFloat(1), LiteralFloat(float32(math.Inf(1))))
	if c1.Hash() != c2.Hash() {
		t.Error("Expected equal tables to hash equal")
	}
	if c1.Hash() == c3.Hash() {
		t.Error("Expected different tables to hash differently")
	}
	if _, err := NewConstantData(LiteralFloat(1), LiteralInt(2)); !IsKind(err, ErrStructural) {
		t.Errorf("Expected StructuralError for mixed table, got %v", err)
	}
}
