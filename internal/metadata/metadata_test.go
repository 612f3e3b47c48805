package metadata

import (
	"errors"
	"reflect"
	"testing"

	"github.com/opensource-finance/mirage/internal/domain"
)

type Account struct {
	ID       string `db:"account_id,id"`
	Name     string
	Balance  int64 `db:"balance"`
	internal string
	Scratch  string `db:"-"`
}

type Order struct {
	ID        int64
	AccountID string
	Archived  bool `db:"archived,deleted"`
}

func (Order) TableName() string { return "shop_orders" }

type Address struct {
	ID   int
	City string
}

func (*Address) TableName() string { return "addresses_v2" }

type Status struct {
	Code string
}

type Duplicate struct {
	A string `db:"a,id"`
	B string `db:"b,id"`
}

func TestResolve(t *testing.T) {
	r := NewResolver()

	t.Run("TaggedID", func(t *testing.T) {
		info, err := r.Resolve(reflect.TypeFor[Account](), nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if info.Table != "accounts" {
			t.Errorf("expected table accounts, got %s", info.Table)
		}
		if info.IDColumn != "account_id" {
			t.Errorf("expected id column account_id, got %s", info.IDColumn)
		}
		if info.IDType != reflect.TypeFor[string]() {
			t.Errorf("expected string id, got %v", info.IDType)
		}
		if got := info.ColumnNames(); !reflect.DeepEqual(got, []string{"account_id", "name", "balance"}) {
			t.Errorf("unexpected columns %v", got)
		}
		if info.DeletedColumn != "" {
			t.Errorf("expected no deleted column, got %s", info.DeletedColumn)
		}
		if info.EntityName() != "Account" {
			t.Errorf("expected entity name Account, got %s", info.EntityName())
		}
	})

	t.Run("FallbackIDAndDeletedColumn", func(t *testing.T) {
		info, err := r.Resolve(reflect.TypeFor[Order](), nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if info.Table != "shop_orders" {
			t.Errorf("expected TableName override, got %s", info.Table)
		}
		if info.IDColumn != "id" || info.IDType != reflect.TypeFor[int64]() {
			t.Errorf("expected int64 id column, got %s %v", info.IDColumn, info.IDType)
		}
		if !reflect.DeepEqual(info.IDIndex(), []int{0}) {
			t.Errorf("unexpected id index %v", info.IDIndex())
		}
		if info.DeletedColumn != "archived" {
			t.Errorf("expected deleted column archived, got %s", info.DeletedColumn)
		}
		if info.Columns[1].Name != "account_id" {
			t.Errorf("expected snake_case account_id, got %s", info.Columns[1].Name)
		}
	})

	t.Run("PointerTableName", func(t *testing.T) {
		info, err := r.Resolve(reflect.TypeFor[*Address](), nil)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if info.DomainType != reflect.TypeFor[Address]() {
			t.Errorf("expected dereferenced type, got %v", info.DomainType)
		}
		if info.Table != "addresses_v2" {
			t.Errorf("expected addresses_v2, got %s", info.Table)
		}
	})

	t.Run("Failures", func(t *testing.T) {
		cases := map[string]reflect.Type{
			"nil":       nil,
			"notStruct": reflect.TypeFor[int](),
			"noID":      reflect.TypeFor[Status](),
			"twoIDs":    reflect.TypeFor[Duplicate](),
		}
		for name, typ := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := r.Resolve(typ, nil)
				if !errors.Is(err, domain.ErrMetadataUnavailable) {
					t.Errorf("expected ErrMetadataUnavailable, got %v", err)
				}
			})
		}
	})
}

// countingResolver counts calls to the wrapped resolver.
type countingResolver struct {
	calls int
	next  domain.MetadataResolver
}

func (c *countingResolver) Resolve(t reflect.Type, sm domain.SQLManager) (*domain.EntityInformation, error) {
	c.calls++
	return c.next.Resolve(t, sm)
}

func TestCachingResolver(t *testing.T) {
	inner := &countingResolver{next: NewResolver()}
	r := NewCachingResolver(inner, 10)

	first, err := r.Resolve(reflect.TypeFor[Account](), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, _ := r.Resolve(reflect.TypeFor[Account](), nil)

	if first != second {
		t.Error("expected the cached instance")
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 resolution, got %d", inner.calls)
	}

	t.Run("FailuresAreNotCached", func(t *testing.T) {
		before := inner.calls
		r.Resolve(reflect.TypeFor[Status](), nil)
		r.Resolve(reflect.TypeFor[Status](), nil)
		if inner.calls != before+2 {
			t.Errorf("expected 2 resolutions, got %d", inner.calls-before)
		}
	})
}

func TestSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Name", "name"},
		{"AccountID", "account_id"},
		{"HTTPStatus", "http_status"},
		{"Line2Total", "line2_total"},
		{"ID", "id"},
	}

	for _, tt := range tests {
		if got := snakeCase(tt.input); got != tt.expected {
			t.Errorf("snakeCase(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestPlural(t *testing.T) {
	tests := map[string]string{
		"account":     "accounts",
		"audit_entry": "audit_entries",
		"key":         "keys",
		"address":     "addresses",
		"box":         "boxes",
		"batch":       "batches",
	}
	for input, expected := range tests {
		if got := plural(input); got != expected {
			t.Errorf("plural(%q) = %q, want %q", input, got, expected)
		}
	}
}
