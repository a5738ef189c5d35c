package protocol

import (
	"strings"
	"testing"
)

func TestHandlerTableLookupFirstMatch(t *testing.T) {
	table := HandlerTable{
		{Opcode: 'A', Name: "first", Func: okHandler},
		{Opcode: 'A', Name: "second", Func: okHandler},
	}
	h, ok := table.Lookup('A')
	if !ok || h.Name != "first" {
		t.Errorf("Expected first handler, got %v", h)
	}
	if _, ok := table.Lookup('B'); ok {
		t.Error("Expected no handler for B")
	}
}

func TestHandlerTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table HandlerTable
		err   string
	}{
		{"valid", HandlerTable{{Opcode: '?', Func: okHandler}, {Opcode: 'V', Args: 2, Func: okHandler}}, ""},
		{"bad opcode", HandlerTable{{Opcode: '_', Func: okHandler}}, "invalid opcode"},
		{"duplicate", HandlerTable{{Opcode: 'V', Func: okHandler}, {Opcode: 'V', Func: okHandler}}, "shadowed"},
		{"args", HandlerTable{{Opcode: 'V', Args: 13, Func: okHandler}}, "out of range"},
		{"nil func", HandlerTable{{Opcode: 'V'}}, "nil callback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			if tt.err == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.err) {
				t.Errorf("Expected error containing %q, got %v", tt.err, err)
			}
		})
	}
}

func TestHandlerTableDescribe(t *testing.T) {
	lines := HandlerTable{
		{Opcode: 'D', Name: "display print", Args: 2, RequiresString: true, Func: okHandler},
		{Opcode: 'X', Func: okHandler},
	}.Describe()

	want := []string{"D args=2 string=true display print", "X args=0 string=false"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %v", len(want), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}
