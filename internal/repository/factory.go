package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/opensource-finance/mirage/internal/domain"
	"github.com/opensource-finance/mirage/internal/metadata"
	"github.com/opensource-finance/mirage/internal/query"
	"github.com/opensource-finance/mirage/internal/resource"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mirage-repository")

// Factory builds repositories bound to one shared SQL manager.
// It holds no mutable state and is safe for concurrent use.
type Factory struct {
	sm        domain.SQLManager
	resolver  domain.MetadataResolver
	resources domain.Namespace
	extractor query.Extractor
	logger    *slog.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithResolver replaces the struct-tag metadata resolver.
func WithResolver(r domain.MetadataResolver) Option {
	return func(f *Factory) { f.resolver = r }
}

// WithNamespace sets where convention-named SQL resources are looked up.
// Without one every lookup is a miss.
func WithNamespace(ns domain.Namespace) Option {
	return func(f *Factory) { f.resources = ns }
}

// WithExtractor sets the query extractor handed to lookup strategies.
func WithExtractor(e query.Extractor) Option {
	return func(f *Factory) { f.extractor = e }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a factory for sm, which must not be nil.
func NewFactory(sm domain.SQLManager, opts ...Option) (*Factory, error) {
	if isNil(sm) {
		return nil, fmt.Errorf("%w: sql manager is required", domain.ErrInvalidConfiguration)
	}

	f := &Factory{
		sm:       sm,
		resolver: metadata.NewResolver(),
	}
	for _, o := range opts {
		o(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f, nil
}

// SQLManager returns the shared SQL manager.
func (f *Factory) SQLManager() domain.SQLManager {
	return f.sm
}

// EntityInformation resolves metadata for domainType against the factory's
// SQL manager. Every failure wraps domain.ErrMetadataUnavailable.
func (f *Factory) EntityInformation(domainType reflect.Type) (*domain.EntityInformation, error) {
	info, err := f.resolver.Resolve(domainType, f.sm)
	if err != nil {
		if errors.Is(err, domain.ErrMetadataUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrMetadataUnavailable, domainType, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s: resolver returned nothing", domain.ErrMetadataUnavailable, domainType)
	}
	return info, nil
}

// QueryLookupStrategy returns the lookup strategy for key, bound to the
// factory's SQL manager and extractor.
func (f *Factory) QueryLookupStrategy(key query.Key) query.Strategy {
	return query.Create(f.sm, key, f.extractor)
}

// Build creates the repository for iface over entity type T.
//
// Metadata failures abort before anything else happens. The SQL resource
// named after iface is looked up once; a missing resource is logged at debug
// level and the repository reads from its table, while any other lookup
// failure aborts the build.
func Build[T any](ctx context.Context, f *Factory, iface Interface) (Repository[T], error) {
	ctx, span := tracer.Start(ctx, "repository.Build",
		trace.WithAttributes(attribute.String("repository.interface", iface.Name)),
	)
	defer span.End()

	info, err := f.EntityInformation(reflect.TypeFor[T]())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	variant := SelectVariant(iface, info)
	span.SetAttributes(
		attribute.String("repository.entity", info.EntityName()),
		attribute.String("repository.variant", variant.String()),
	)

	repo, base := construct[T](variant, iface, info, f.sm)

	name := resource.Name(iface.Name)
	binding, err := resource.Bind(ctx, f.resources, iface.Namespace, name)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("bind sql resource %s for %s: %w", name, iface.Name, err)
	}

	if binding.Found {
		base.setBaseResource(binding.Resource)
	} else {
		f.logger.Debug("repository default SQL not found, default used",
			"interface", iface.Name,
			"namespace", iface.Namespace,
			"resource", name,
		)
	}
	span.SetAttributes(attribute.Bool("repository.resource_bound", binding.Found))

	return repo, nil
}

// construct instantiates variant. The returned SQLRepository is the shared
// base the variant embeds.
func construct[T any](variant Variant, iface Interface, info *domain.EntityInformation, sm domain.SQLManager) (Repository[T], *SQLRepository[T]) {
	switch variant {
	case VariantLogicalDelete:
		r := NewLogicalDeleteSQLRepository[T](iface, info, sm)
		return r, r.SQLRepository
	case VariantIdentifiable:
		r := NewIdentifiableSQLRepository[T](iface, info, sm)
		return r, r.SQLRepository
	default:
		r := NewSQLRepository[T](iface, info, sm)
		return r, r
	}
}

func isNil(sm domain.SQLManager) bool {
	if sm == nil {
		return true
	}
	v := reflect.ValueOf(sm)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
