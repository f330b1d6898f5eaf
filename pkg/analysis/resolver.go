package analysis

import (
	"context"
	"log"
	"strings"
)

// Resolution is what entity resolution adds on top of a raw analysis
type Resolution struct {
	ResolvedModel        string
	ResolvedFilters      map[string]string
	ResolvedAggregations []string
	ResolutionConfidence float64
	WasEnriched          bool
}

// Resolver maps raw entities and hints to canonical dataset terms
type Resolver interface {
	Resolve(ctx context.Context, qa *QuestionAnalysis, query string) (*Resolution, error)
}

// TermCatalog resolves a free-text term to a canonical field/value pair.
// The glossary repository implements this against Postgres.
type TermCatalog interface {
	ResolveTerm(ctx context.Context, term string) (field string, value string, ok bool, err error)
}

// CatalogResolver resolves entities against a term catalog plus a static
// model-alias table. Catalog failures degrade to the raw entity values.
type CatalogResolver struct {
	catalog TermCatalog
	logger  *log.Logger
}

func NewCatalogResolver(catalog TermCatalog, logger *log.Logger) *CatalogResolver {
	return &CatalogResolver{catalog: catalog, logger: logger}
}

// modelAliases normalises model hints to canonical dataset model names
var modelAliases = map[string]string{
	"projects":      "projects",
	"project":       "projects",
	"organisations": "organisations",
	"organisation":  "organisations",
	"orgs":          "organisations",
	"contracts":     "contracts",
	"contract":      "contracts",
	"regions":       "regions",
	"milestones":    "milestones",
}

func (r *CatalogResolver) Resolve(ctx context.Context, qa *QuestionAnalysis, query string) (*Resolution, error) {
	res := &Resolution{
		ResolvedFilters: make(map[string]string),
	}

	resolved, attempted := 0, 0

	for _, hint := range qa.ModelHints {
		if canonical, ok := modelAliases[strings.ToLower(hint)]; ok {
			res.ResolvedModel = canonical
			break
		}
	}

	for _, entity := range qa.Entities {
		attempted++

		if r.catalog != nil {
			field, value, ok, err := r.catalog.ResolveTerm(ctx, entity.Value)
			if err != nil {
				r.logger.Printf("[RESOLVE] Catalog lookup failed for %q: %v", entity.Value, err)
			} else if ok {
				res.ResolvedFilters[field] = value
				resolved++
				continue
			}
		}

		// Fall back to the tagged form as-is
		res.ResolvedFilters[entity.Type] = entity.Value
	}

	if qa.Operation != "" {
		res.ResolvedAggregations = append(res.ResolvedAggregations, qa.Operation)
	}

	switch {
	case attempted == 0 && res.ResolvedModel == "":
		res.ResolutionConfidence = 0
	case attempted == 0:
		res.ResolutionConfidence = 0.7
		res.WasEnriched = true
	default:
		res.ResolutionConfidence = 0.5 + 0.5*float64(resolved)/float64(attempted)
		res.WasEnriched = true
	}

	return res, nil
}
