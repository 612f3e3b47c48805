// Package ledger declares the repositories the mirage binary serves: accounts,
// archivable orders and an audit trail.
package ledger

import (
	"context"
	"embed"
	"fmt"

	"github.com/opensource-finance/mirage/internal/query"
	"github.com/opensource-finance/mirage/internal/repository"
	"github.com/opensource-finance/mirage/internal/sqlmanager"
)

//go:embed schema/*.sql
var schema embed.FS

// Account is a customer account. New accounts get a UUID on first save.
type Account struct {
	ID       string `db:"id,id"`
	Owner    string
	Currency string
	Balance  int64
}

func (a *Account) Identity() any            { return a.ID }
func (a *Account) IsNew() bool              { return a.ID == "" }
func (a *Account) AssignIdentity(id string) { a.ID = id }

// Order is a payment order. Archiving an order hides it without removing it.
type Order struct {
	ID        string `db:"id,id"`
	AccountID string
	Amount    int64
	Status    string
	Archived  bool `db:"archived,deleted"`
}

func (o *Order) Identity() any { return o.ID }
func (o *Order) IsNew() bool   { return o.ID == "" }

// AuditEntry is an append-only audit record.
type AuditEntry struct {
	ID      int64
	Subject string
	Action  string
	Level   string
}

type AccountRepo interface {
	repository.Repository[Account]
}

type ArchivedOrderRepo interface {
	repository.LogicalDeleteRepository[Order]
}

type AuditRepo interface {
	repository.Repository[AuditEntry]
}

// Store holds the built ledger repositories.
type Store struct {
	Accounts repository.IdentifiableRepository[Account]
	Orders   repository.LogicalDeleteRepository[Order]
	Audit    repository.Repository[AuditEntry]

	lookup query.Strategy
}

// ApplySchema creates the ledger tables.
func ApplySchema(ctx context.Context, m *sqlmanager.Manager) error {
	return m.ApplySchema(ctx, schema, "schema")
}

// Open builds every ledger repository through f. Queries outside the CRUD
// contract are resolved with lookup.
func Open(ctx context.Context, f *repository.Factory, lookup query.Key) (*Store, error) {
	accounts, err := repository.Build[Account](ctx, f, repository.Declare[AccountRepo]())
	if err != nil {
		return nil, err
	}
	orders, err := repository.Build[Order](ctx, f, repository.Declare[ArchivedOrderRepo]())
	if err != nil {
		return nil, err
	}
	audit, err := repository.Build[AuditEntry](ctx, f, repository.Declare[AuditRepo]())
	if err != nil {
		return nil, err
	}

	s := &Store{
		Audit:  audit,
		lookup: f.QueryLookupStrategy(lookup),
	}

	var ok bool
	if s.Accounts, ok = accounts.(repository.IdentifiableRepository[Account]); !ok {
		return nil, fmt.Errorf("AccountRepo built as %s", accounts.Variant())
	}
	if s.Orders, ok = orders.(repository.LogicalDeleteRepository[Order]); !ok {
		return nil, fmt.Errorf("ArchivedOrderRepo built as %s", orders.Variant())
	}
	return s, nil
}

// CountOrdersByStatus counts the live orders of an account with the given
// status. Archived orders are not counted.
func (s *Store) CountOrdersByStatus(ctx context.Context, accountID, status string) (int64, error) {
	q, err := s.lookup.Resolve(query.Method{
		Name:          "CountByAccountIDAndStatus",
		Entity:        s.Orders.Info(),
		DeletedColumn: s.Orders.DeletedColumn(),
	})
	if err != nil {
		return 0, err
	}

	var n int64
	if err := s.lookup.SQLManager().QueryRow(ctx, q.SQL, accountID, status).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", q.Method, err)
	}
	return n, nil
}
