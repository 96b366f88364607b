package formula

import (
	"errors"
	"math"
	"testing"
)

func TestEvalArithmetic(t *testing.T) {
	tests := []struct {
		name string
		expr string
		x    float64
		want float64
	}{
		{name: "identity", expr: "x", x: 42, want: 42},
		{name: "literal", expr: "14.5", x: 0, want: 14.5},
		{name: "scale", expr: "x / 655.35", x: 65535, want: 100},
		{name: "offset", expr: "x / 100 - 14.5", x: 1450, want: 0},
		{name: "parens", expr: "(x + 14.5) * 100", x: 0.5, want: 1500},
		{name: "precedence", expr: "2 + 3 * 4", x: 0, want: 14},
		{name: "unary minus", expr: "-x + 10", x: 4, want: 6},
		{name: "nested parens", expr: "((x - 1) * (x + 1))", x: 3, want: 8},
		{name: "spaces", expr: "  x / 2 ", x: 10, want: 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Eval(tc.expr, tc.x)
			if err != nil {
				t.Fatalf("Eval(%q) failed: %v", tc.expr, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Eval(%q, %g) = %g, want %g", tc.expr, tc.x, got, tc.want)
			}
		})
	}
}

func TestCompileRejectsDisallowedInput(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{name: "letters", expr: "x + import"},
		{name: "call syntax", expr: "abs(x)"},
		{name: "power operator", expr: "x ** 2"},
		{name: "comparison", expr: "x > 2"},
		{name: "underscore", expr: "_x"},
		{name: "semicolon", expr: "x; x"},
		{name: "empty", expr: ""},
		{name: "unbalanced", expr: "(x + 1"},
		{name: "trailing operator", expr: "x +"},
		{name: "double variable", expr: "x x"},
		{name: "bad number", expr: "1.2.3"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compile(tc.expr); !errors.Is(err, ErrBadExpression) {
				t.Fatalf("Compile(%q) error = %v, want ErrBadExpression", tc.expr, err)
			}
		})
	}
}

func TestEvalDivideByZero(t *testing.T) {
	if _, err := Eval("x / 0", 5); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("error = %v, want ErrDivideByZero", err)
	}
	if _, err := Eval("1 / (x - 2)", 2); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("error = %v, want ErrDivideByZero", err)
	}
	// Same expression is fine away from the pole.
	if v, err := Eval("1 / (x - 2)", 4); err != nil || v != 0.5 {
		t.Fatalf("Eval = %g, %v; want 0.5", v, err)
	}
}

func TestRawRealRoundTrip(t *testing.T) {
	formulas := []Formula{
		{Forward: "x / 655.35", Inverse: "x * 655.35", Units: "%"},
		{Forward: "x / 100 - 14.5", Inverse: "(x + 14.5) * 100", Units: "psi"},
		{Forward: "x * 0.25", Inverse: "x / 0.25", Units: "rpm"},
		Identity,
	}
	raws := []uint16{0, 1, 255, 256, 32767, 32768, 65534, 65535}
	for _, f := range formulas {
		if err := f.Validate(); err != nil {
			t.Fatalf("Validate(%q) failed: %v", f.Forward, err)
		}
		for _, raw := range raws {
			real, err := RawToReal(raw, f)
			if err != nil {
				t.Fatalf("RawToReal(%d, %q) failed: %v", raw, f.Forward, err)
			}
			back, err := RealToRaw(real, f)
			if err != nil {
				t.Fatalf("RealToRaw(%g, %q) failed: %v", real, f.Inverse, err)
			}
			diff := int(back) - int(raw)
			if diff < -1 || diff > 1 {
				t.Fatalf("round trip raw %d -> %g -> %d via %q", raw, real, back, f.Forward)
			}
		}
	}
}

func TestRealToRawClamps(t *testing.T) {
	f := Formula{Forward: "x", Inverse: "x", Units: "raw"}
	v, err := RealToRaw(-5, f)
	if err != nil || v != 0 {
		t.Fatalf("RealToRaw(-5) = %d, %v; want 0", v, err)
	}
	v, err = RealToRaw(70000, f)
	if err != nil || v != 65535 {
		t.Fatalf("RealToRaw(70000) = %d, %v; want 65535", v, err)
	}
}
