package implementation

import (
	"context"
	"fmt"

	"datachat-be/internal/entity"
	"datachat-be/internal/repository/contract"
	"datachat-be/internal/repository/specification"
	"datachat-be/pkg/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRecordLimit = 50

type DatasetRepositoryImpl struct {
	db *gorm.DB
}

func NewDatasetRepository(db *gorm.DB) contract.DatasetRepository {
	return &DatasetRepositoryImpl{db: db}
}

var datasetModels = []string{"projects", "organisations", "contracts", "regions", "milestones"}

// filterableColumns guards against arbitrary column names reaching SQL.
// Unknown filter keys are dropped, not errors; the resolver may pass
// terms the schema does not carry.
var filterableColumns = map[string]map[string]bool{
	"projects":      {"name": true, "status": true, "region": true, "organisation_id": true},
	"organisations": {"name": true, "sector": true, "region": true},
	"contracts":     {"status": true, "project_id": true, "organisation_id": true},
	"milestones":    {"status": true, "project_id": true, "name": true},
}

func (r *DatasetRepositoryImpl) Models() []string {
	return datasetModels
}

func (r *DatasetRepositoryImpl) FindRecords(ctx context.Context, model string, filters map[string]string, ids []string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = defaultRecordLimit
	}

	switch model {
	case "projects":
		var rows []*entity.Project
		if err := r.query(ctx, model, filters, ids, limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find projects: %w", err)
		}
		records := make([]store.Record, len(rows))
		for i, p := range rows {
			records[i] = projectRecord(p)
		}
		return records, nil

	case "organisations":
		var rows []*entity.Organisation
		if err := r.query(ctx, model, filters, ids, limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find organisations: %w", err)
		}
		records := make([]store.Record, len(rows))
		for i, o := range rows {
			records[i] = organisationRecord(o)
		}
		return records, nil

	case "contracts":
		var rows []*entity.Contract
		if err := r.query(ctx, model, filters, ids, limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find contracts: %w", err)
		}
		records := make([]store.Record, len(rows))
		for i, c := range rows {
			records[i] = contractRecord(c)
		}
		return records, nil

	case "milestones":
		var rows []*entity.Milestone
		if err := r.query(ctx, model, filters, ids, limit).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("find milestones: %w", err)
		}
		records := make([]store.Record, len(rows))
		for i, m := range rows {
			records[i] = milestoneRecord(m)
		}
		return records, nil

	case "regions":
		return r.findRegions(ctx, limit)

	default:
		return nil, fmt.Errorf("unknown model %q", model)
	}
}

// query assembles the spec chain for one model read
func (r *DatasetRepositoryImpl) query(ctx context.Context, model string, filters map[string]string, ids []string, limit int) *gorm.DB {
	db := r.db.WithContext(ctx)

	specs := []specification.Specification{specification.Limit{N: limit}}

	allowed := filterableColumns[model]
	for field, value := range filters {
		if allowed[field] {
			specs = append(specs, specification.FilterBy{Field: field, Value: value})
		}
	}

	if len(ids) > 0 {
		uuids := make([]uuid.UUID, 0, len(ids))
		for _, id := range ids {
			if parsed, err := uuid.Parse(id); err == nil {
				uuids = append(uuids, parsed)
			}
		}
		specs = append(specs, specification.ByIDs{IDs: uuids})
	}

	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// findRegions synthesizes the regions model from project rows; there is
// no regions table
func (r *DatasetRepositoryImpl) findRegions(ctx context.Context, limit int) ([]store.Record, error) {
	type regionRow struct {
		Region   string
		Projects int
	}
	var rows []regionRow
	err := r.db.WithContext(ctx).
		Model(&entity.Project{}).
		Select("region, count(*) as projects").
		Group("region").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find regions: %w", err)
	}

	records := make([]store.Record, len(rows))
	for i, row := range rows {
		records[i] = store.Record{
			"id":       row.Region,
			"name":     row.Region,
			"projects": row.Projects,
		}
	}
	return records, nil
}

func projectRecord(p *entity.Project) store.Record {
	rec := store.Record{
		"id":              p.Id.String(),
		"name":            p.Name,
		"status":          p.Status,
		"region":          p.Region,
		"organisation_id": p.OrganisationId.String(),
		"budget":          p.Budget,
		"started_at":      p.StartedAt,
	}
	if p.CompletedAt != nil {
		rec["completed_at"] = *p.CompletedAt
	}
	return rec
}

func organisationRecord(o *entity.Organisation) store.Record {
	return store.Record{
		"id":     o.Id.String(),
		"name":   o.Name,
		"sector": o.Sector,
		"region": o.Region,
	}
}

func contractRecord(c *entity.Contract) store.Record {
	return store.Record{
		"id":              c.Id.String(),
		"project_id":      c.ProjectId.String(),
		"organisation_id": c.OrganisationId.String(),
		"status":          c.Status,
		"value":           c.Value,
		"signed_at":       c.SignedAt,
	}
}

func milestoneRecord(m *entity.Milestone) store.Record {
	return store.Record{
		"id":         m.Id.String(),
		"project_id": m.ProjectId.String(),
		"name":       m.Name,
		"status":     m.Status,
		"due_at":     m.DueAt,
	}
}
