package tool

import (
	"math"
	"strings"
	"testing"
)

func TestEvaluateExpression(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr string
		want float64
	}{
		{"2+3", 5},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"2 ^ 3", 8},
		{"2 ^ 3 ^ 2", 512}, // right-associative
		{"-3 + 5", 2},
		{"--3", 3},
		{"+4 * -2", -8},
		{"3.5 * 2", 7},
		{" ( 1 + 2 ) * ( 3 + 4 ) ", 21},
	}
	for _, tc := range cases {
		got, err := EvaluateExpression(tc.expr)
		if err != nil {
			t.Errorf("EvaluateExpression(%q) error = %v", tc.expr, err)
			continue
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("EvaluateExpression(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestEvaluateExpressionErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		expr    string
		wantErr string
	}{
		{"", "empty"},
		{"2 + x", "invalid characters"},
		{"1 / 0", "division by zero"},
		{"5 % 0", "modulo by zero"},
		{"(1 + 2", "unbalanced"},
		{"1 + 2)", "unbalanced"},
		{"1..2", "invalid number"},
		{"1 + ", "expected number"},
		{"import os", "invalid characters"},
	}
	for _, tc := range cases {
		_, err := EvaluateExpression(tc.expr)
		if err == nil {
			t.Errorf("EvaluateExpression(%q) expected error", tc.expr)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantErr) {
			t.Errorf("EvaluateExpression(%q) error = %q, want substring %q", tc.expr, err, tc.wantErr)
		}
	}
}

func TestExecuteMathToolArgs(t *testing.T) {
	t.Parallel()

	res := executeMathTool(ToolMathEvaluate, map[string]any{})
	if res.Error == "" {
		t.Fatal("expected error for missing expression")
	}

	res = executeMathTool(ToolMathEvaluate, map[string]any{"expression": 42})
	if res.Error == "" {
		t.Fatal("expected error for non-string expression")
	}

	res = executeMathTool(ToolMathEvaluate, map[string]any{"expression": " 6 * 7 "})
	if res.Error != "" {
		t.Fatalf("unexpected error: %s", res.Error)
	}
	out, ok := res.Result.(MathEvaluateOutput)
	if !ok {
		t.Fatalf("unexpected result type %T", res.Result)
	}
	if out.Result != 42 {
		t.Fatalf("result = %v, want 42", out.Result)
	}
}
