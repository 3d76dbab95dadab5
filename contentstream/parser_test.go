package contentstream

import (
	"testing"

	"github.com/tsawler/folio/core"
)

func TestParseTextObject(t *testing.T) {
	data := []byte(`BT /F1 12 Tf 72 712.5 Td (Hello) Tj [(W) -120 (orld)] TJ T* (next) ' 1 2 (x) " ET`)
	ops, err := NewParser(data).Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	want := []string{"BT", "Tf", "Td", "Tj", "TJ", "T*", "'", "\"", "ET"}
	if len(ops) != len(want) {
		t.Fatalf("got %d operations, want %d: %+v", len(ops), len(want), ops)
	}
	for i, op := range ops {
		if op.Operator != want[i] {
			t.Errorf("op %d = %q, want %q", i, op.Operator, want[i])
		}
	}

	if name, ok := ops[1].Operands[0].(core.Name); !ok || name != "F1" {
		t.Errorf("Tf font operand = %v", ops[1].Operands[0])
	}
	if y, ok := ops[2].Operands[1].(core.Real); !ok || y != 712.5 {
		t.Errorf("Td y operand = %v", ops[2].Operands[1])
	}
	arr, ok := ops[4].Operands[0].(core.Array)
	if !ok || len(arr) != 3 {
		t.Fatalf("TJ operand = %v", ops[4].Operands[0])
	}
	if kern, ok := arr[1].(core.Int); !ok || kern != -120 {
		t.Errorf("TJ kerning = %v", arr[1])
	}
	if len(ops[7].Operands) != 3 {
		t.Errorf("\" operands = %v", ops[7].Operands)
	}
}

func TestParseOperatorsWithDigits(t *testing.T) {
	ops, err := NewParser([]byte("500 0 d0 0 0 m 100 0 l S % trailing comment\nq 1 0 0 1 0 0 cm Q")).Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	want := []string{"d0", "m", "l", "S", "q", "cm", "Q"}
	if len(names) != len(want) {
		t.Fatalf("operators = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("operator %d = %q, want %q", i, names[i], want[i])
		}
	}
	if len(ops[5].Operands) != 6 {
		t.Errorf("cm has %d operands", len(ops[5].Operands))
	}
}

func TestParseLiterals(t *testing.T) {
	ops, err := NewParser([]byte("true false null /Foo BDC [true] x")).Parse()
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 2 {
		t.Fatalf("got %d operations", len(ops))
	}
	if b, ok := ops[0].Operands[0].(core.Bool); !ok || !bool(b) {
		t.Errorf("first operand = %v", ops[0].Operands[0])
	}
	if _, ok := ops[0].Operands[2].(core.Null); !ok {
		t.Errorf("third operand = %v", ops[0].Operands[2])
	}
}

func TestParseInlineImage(t *testing.T) {
	data := []byte("q BI /W 2 /H 1 /CS /G /BPC 8 ID \x00EI\xff EI Q BT ET")
	ops, err := NewParser(data).Parse()
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []string{"q", "BI", "Q", "BT", "ET"}
	if len(ops) != len(want) {
		t.Fatalf("got %+v", ops)
	}
	params, ok := ops[1].Operands[0].(core.Dict)
	if !ok {
		t.Fatalf("BI operand = %T", ops[1].Operands[0])
	}
	if w, _ := params.GetInt("W"); w != 2 {
		t.Errorf("W = %d", w)
	}
	if cs, _ := params.GetName("CS"); cs != "G" {
		t.Errorf("CS = %q", cs)
	}

	if _, err := NewParser([]byte("BI /W 1 ID abc")).Parse(); err == nil {
		t.Error("expected error for missing EI")
	}
}

func TestParseErrorKeepsOperations(t *testing.T) {
	ops, err := NewParser([]byte("q 1 0 0 1 0 0 cm ) Q")).Parse()
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ops) != 2 {
		t.Errorf("kept %d operations, want 2", len(ops))
	}
}

func TestFindEI(t *testing.T) {
	tests := []struct {
		data string
		from int
		want int
	}{
		{"abc EI", 0, 4},
		{"EI", 0, 0},
		{"xEI EI\n", 0, 4},
		{"aEIb", 0, -1},
		{"", 0, -1},
	}
	for _, tt := range tests {
		if got := findEI([]byte(tt.data), tt.from); got != tt.want {
			t.Errorf("findEI(%q) = %d, want %d", tt.data, got, tt.want)
		}
	}
}

func TestParseInlineImageAbbreviations(t *testing.T) {
	ops, err := NewParser([]byte("BI /W 1 /H 1 /CS RGB /F [/AHx] ID ffffff> EI")).Parse()
	if err != nil {
		t.Fatal(err)
	}
	params := ops[0].Operands[0].(core.Dict)
	if cs, _ := params.GetName("CS"); cs != "RGB" {
		t.Errorf("CS = %v", params.Get("CS"))
	}
	if f, _ := params.GetArray("F"); len(f) != 1 {
		t.Errorf("F = %v", params.Get("F"))
	}
}
