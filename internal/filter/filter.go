// Package filter compiles CEL predicates evaluated against entity rows.
package filter

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/mirage/internal/domain"
)

// Predicate is a compiled boolean CEL expression. Every column is available
// as a variable of the same name, and the whole row as the map "row".
type Predicate struct {
	expr    string
	program cel.Program
}

// Compiler compiles predicates for one entity and memoizes the programs.
type Compiler struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled map[string]*Predicate
}

// NewCompiler creates a compiler whose environment declares the entity's columns.
func NewCompiler(info *domain.EntityInformation) (*Compiler, error) {
	opts := []cel.EnvOption{
		cel.Variable("row", cel.MapType(cel.StringType, cel.DynType)),
	}
	for _, name := range info.ColumnNames() {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Compiler{
		env:      env,
		compiled: make(map[string]*Predicate),
	}, nil
}

// Compile parses and type-checks expr. A non-bool result is rejected by Match.
func (c *Compiler) Compile(expr string) (*Predicate, error) {
	c.mu.RLock()
	p, ok := c.compiled[expr]
	c.mu.RUnlock()
	if ok {
		return p, nil
	}

	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile %q: %v", domain.ErrInvalidInput, expr, issues.Err())
	}

	program, err := c.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %q: %w", expr, err)
	}

	p = &Predicate{expr: expr, program: program}

	c.mu.Lock()
	c.compiled[expr] = p
	c.mu.Unlock()

	return p, nil
}

// Match evaluates the predicate against a row keyed by column name.
func (p *Predicate) Match(row map[string]any) (bool, error) {
	vars := make(map[string]any, len(row)+1)
	for k, v := range row {
		vars[k] = v
	}
	vars["row"] = row

	out, _, err := p.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", p.expr, err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("%w: %q returned %s, not bool", domain.ErrInvalidInput, p.expr, out.Type())
	}
	return bool(b), nil
}

// String returns the source expression.
func (p *Predicate) String() string {
	return p.expr
}
