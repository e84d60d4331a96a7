package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	emissionErrors "github.com/carbonledger/api/emissions/errors"
	"github.com/carbonledger/api/emissions/models"
	"github.com/carbonledger/api/internal/cache"
	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/pkg/log"
	"github.com/carbonledger/api/internal/platform"
	"github.com/carbonledger/api/internal/types"
	"github.com/carbonledger/api/internal/validation"
	"github.com/gofrs/uuid"
)

const Collection = "emissions"

// Resource is the emission records list configuration.
var Resource = filter.Resource{
	Collection:   Collection,
	RecordsField: "dataemission",
	Search:       []string{"location", "category"},
	Range: &filter.Range{
		StartParam: "startFullDate",
		EndParam:   "endFullDate",
		StartField: "date",
		Kind:       filter.Date,
	},
	Columns: map[string]filter.Kind{
		"location":         filter.String,
		"category":         filter.String,
		"quantity":         filter.Number,
		"emission_tracker": filter.Number,
		"source":           filter.String,
		"name":             filter.String,
	},
	DefaultLimit: 10,
	Sort:         []interfaces.SortField{{Field: "date", Direction: -1}},
}

var Indexes = map[string][]interfaces.IndexSpec{
	Collection: {
		{Field: "objectId", Unique: true},
		{Field: "date"},
		{Field: "category"},
		{Field: "location"},
	},
}

// EmissionService defines emission record operations.
type EmissionService interface {
	Create(ctx context.Context, in *models.EmissionInput, actor types.UserContext) (*models.Emission, error)
	Update(ctx context.Context, id uuid.UUID, in *models.EmissionUpdate) (*models.Emission, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, req filter.Request) (*filter.Page[models.Emission], error)

	// Batch drops empty rows, stamps source on the rest and inserts them together.
	// It returns the number of inserted records.
	Batch(ctx context.Context, rows []models.EmissionInput, source string, actor types.UserContext) (int, error)
	// ImportCSV reads a header row followed by records and inserts them through Batch.
	ImportCSV(ctx context.Context, r io.Reader, source string, actor types.UserContext) (int, error)

	// Generate fills emission factors for each row from a matching individually entered record.
	Generate(ctx context.Context, rows []models.GenerateRow) ([]models.GenerateRow, error)
}

type emissionService struct {
	base    *platform.BaseService
	lookups *cache.Store
}

// NewEmissionService creates the service. lookups caches reference records for
// Generate and may be nil.
func NewEmissionService(base *platform.BaseService, lookups *cache.Store) EmissionService {
	return &emissionService{base: base, lookups: lookups}
}

func valueOr(n *float64) float64 {
	if n == nil {
		return 0
	}
	return *n
}

func parseDate(value string) (time.Time, error) {
	t, err := filter.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", emissionErrors.ErrInvalidDate, value)
	}
	return t, nil
}

func newEmission(in *models.EmissionInput, actor types.UserContext, now time.Time) (*models.Emission, error) {
	date, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	return &models.Emission{
		ObjectId:        uuid.Must(uuid.NewV4()),
		Name:            strings.TrimSpace(in.Name),
		Location:        strings.TrimSpace(in.Location),
		Category:        strings.TrimSpace(in.Category),
		Source:          strings.TrimSpace(in.Source),
		Quantity:        valueOr(in.Quantity),
		EmissionTracker: valueOr(in.EmissionTracker),
		Scope1:          valueOr(in.Scope1),
		Scope2:          valueOr(in.Scope2),
		Scope3:          valueOr(in.Scope3),
		Date:            date,
		CreatedBy:       actor.UserID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// invalidateLookups drops cached reference records after any write.
func (s *emissionService) invalidateLookups(ctx context.Context) {
	if !s.lookups.IsEnabled() {
		return
	}
	if err := s.lookups.Invalidate(ctx, lookupPrefix+":*"); err != nil {
		log.WarnWithContext(ctx, "invalidate emission lookups: %v", err)
	}
}

func (s *emissionService) Create(ctx context.Context, in *models.EmissionInput, actor types.UserContext) (*models.Emission, error) {
	record, err := newEmission(in, actor, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if res := <-s.base.Repository.Save(ctx, Collection, record); res.Error != nil {
		return nil, fmt.Errorf("save emission: %w", res.Error)
	}
	s.invalidateLookups(ctx)
	return record, nil
}

func (s *emissionService) find(ctx context.Context, id uuid.UUID) (*models.Emission, error) {
	var record models.Emission
	err := s.base.FindOne(ctx, Collection, interfaces.Where("objectId", id), &record)
	if errors.Is(err, interfaces.ErrNoDocuments) {
		return nil, emissionErrors.ErrEmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find emission: %w", err)
	}
	return &record, nil
}

func (s *emissionService) Update(ctx context.Context, id uuid.UUID, in *models.EmissionUpdate) (*models.Emission, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	text := func(field *string, key string, value *string) {
		if value != nil {
			*field = strings.TrimSpace(*value)
			set[key] = *field
		}
	}
	number := func(field *float64, key string, value *float64) {
		if value != nil {
			*field = *value
			set[key] = *value
		}
	}
	text(&record.Name, "name", in.Name)
	text(&record.Location, "location", in.Location)
	text(&record.Category, "category", in.Category)
	text(&record.Source, "source", in.Source)
	number(&record.Quantity, "quantity", in.Quantity)
	number(&record.EmissionTracker, "emission_tracker", in.EmissionTracker)
	number(&record.Scope1, "scope1", in.Scope1)
	number(&record.Scope2, "scope2", in.Scope2)
	number(&record.Scope3, "scope3", in.Scope3)
	if in.Date != nil {
		date, err := parseDate(*in.Date)
		if err != nil {
			return nil, err
		}
		record.Date = date
		set["date"] = date
	}
	if len(set) == 0 {
		return record, nil
	}
	record.UpdatedAt = time.Now().UTC()
	set["updatedAt"] = record.UpdatedAt

	res := <-s.base.Repository.Update(ctx, Collection, interfaces.Where("objectId", id), map[string]interface{}{"$set": set})
	if res.Error != nil {
		return nil, fmt.Errorf("update emission: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return nil, emissionErrors.ErrEmissionNotFound
	}
	s.invalidateLookups(ctx)
	return record, nil
}

func (s *emissionService) Delete(ctx context.Context, id uuid.UUID) error {
	res := <-s.base.Repository.Delete(ctx, Collection, interfaces.Where("objectId", id))
	if res.Error != nil {
		return fmt.Errorf("delete emission: %w", res.Error)
	}
	if interfaces.AffectedCount(res) == 0 {
		return emissionErrors.ErrEmissionNotFound
	}
	s.invalidateLookups(ctx)
	return nil
}

func (s *emissionService) List(ctx context.Context, req filter.Request) (*filter.Page[models.Emission], error) {
	return filter.List[models.Emission](ctx, s.base.Repository, Resource, req, nil)
}

func (s *emissionService) Batch(ctx context.Context, rows []models.EmissionInput, source string, actor types.UserContext) (int, error) {
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		if row.IsEmpty() {
			continue
		}
		row.Source = source
		if err := validation.Struct(row); err != nil {
			return 0, fmt.Errorf("%w %d: %v", emissionErrors.ErrInvalidRow, i+1, err)
		}
		record, err := newEmission(row, actor, now)
		if err != nil {
			return 0, fmt.Errorf("%w %d: %v", emissionErrors.ErrInvalidRow, i+1, err)
		}
		docs = append(docs, record)
	}
	if len(docs) == 0 {
		return 0, emissionErrors.ErrEmptyBatch
	}

	res := <-s.base.Repository.SaveMany(ctx, Collection, docs)
	inserted := 0
	if ids, ok := res.Result.([]interface{}); ok {
		inserted = len(ids)
	}
	if inserted > 0 {
		s.invalidateLookups(ctx)
	}
	if res.Error != nil {
		return inserted, fmt.Errorf("save emissions: %w", res.Error)
	}
	log.InfoWithContext(ctx, "inserted %d emission records from %s", inserted, source)
	return inserted, nil
}

func (s *emissionService) ImportCSV(ctx context.Context, r io.Reader, source string, actor types.UserContext) (int, error) {
	rows, err := ReadCSV(r)
	if err != nil {
		return 0, err
	}
	return s.Batch(ctx, rows, source, actor)
}
