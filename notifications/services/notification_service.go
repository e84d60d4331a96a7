package services

import (
	"context"

	"github.com/carbonledger/api/internal/database/interfaces"
	"github.com/carbonledger/api/internal/filter"
	"github.com/carbonledger/api/internal/notify"
	"github.com/carbonledger/api/internal/platform"
)

// Resource lists notifications newest first.
var Resource = filter.Resource{
	Collection:   notify.Collection,
	RecordsField: "notifications",
	Search:       []string{"message", "actorName"},
	Range: &filter.Range{
		StartParam: "start",
		EndParam:   "end",
		StartField: "createdAt",
		Kind:       filter.Date,
	},
	Columns: map[string]filter.Kind{
		"message":   filter.String,
		"status":    filter.String,
		"actorName": filter.String,
		"createdAt": filter.Date,
	},
	DefaultLimit: 20,
	Sort:         []interfaces.SortField{{Field: "createdAt", Direction: -1}},
}

var Indexes = map[string][]interfaces.IndexSpec{
	notify.Collection: {
		{Field: "objectId", Unique: true},
		{Field: "createdAt"},
	},
}

type NotificationService interface {
	List(ctx context.Context, req filter.Request) (*filter.Page[notify.Notification], error)
}

type notificationService struct {
	base *platform.BaseService
}

func NewNotificationService(base *platform.BaseService) NotificationService {
	return &notificationService{base: base}
}

func (s *notificationService) List(ctx context.Context, req filter.Request) (*filter.Page[notify.Notification], error) {
	return filter.List[notify.Notification](ctx, s.base.Repository, Resource, req, nil)
}
