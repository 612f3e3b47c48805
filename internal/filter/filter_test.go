package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/opensource-finance/mirage/internal/domain"
)

func testInfo() *domain.EntityInformation {
	return &domain.EntityInformation{
		DomainType: reflect.TypeFor[struct{}](),
		Table:      "accounts",
		IDColumn:   "id",
		Columns: []domain.Column{
			{Name: "id", ID: true},
			{Name: "name"},
			{Name: "balance"},
		},
	}
}

func TestPredicate(t *testing.T) {
	c, err := NewCompiler(testInfo())
	if err != nil {
		t.Fatalf("NewCompiler failed: %v", err)
	}

	row := map[string]any{"id": "a-1", "name": "alice", "balance": int64(250)}

	tests := []struct {
		expr     string
		expected bool
	}{
		{`balance > 100`, true},
		{`balance > 1000`, false},
		{`name.startsWith("al") && id == "a-1"`, true},
		{`row["name"] == "alice"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			p, err := c.Compile(tt.expr)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			got, err := p.Match(row)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Match() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	c, err := NewCompiler(testInfo())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("UnknownVariable", func(t *testing.T) {
		_, err := c.Compile(`missing_column == 1`)
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NonBoolResult", func(t *testing.T) {
		p, err := c.Compile(`name`)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		_, err = p.Match(map[string]any{"id": "x", "name": "n", "balance": int64(0)})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestCompileMemoizes(t *testing.T) {
	c, err := NewCompiler(testInfo())
	if err != nil {
		t.Fatal(err)
	}

	a, _ := c.Compile(`balance > 0`)
	b, _ := c.Compile(`balance > 0`)
	if a != b {
		t.Error("expected the same compiled predicate")
	}
	if a.String() != `balance > 0` {
		t.Errorf("unexpected String() %q", a.String())
	}
}
