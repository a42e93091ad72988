package audit

import (
	"context"

	"github.com/sokoerp/sokoerp/internal/shared"
)

// RepositoryPort abstracts timeline reads for the service.
type RepositoryPort interface {
	Timeline(ctx context.Context, filter TimelineFilter) ([]TimelineRow, int, error)
}

// Service coordinates audit trail queries.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline lists audit rows with pagination metadata.
func (s *Service) Timeline(ctx context.Context, filter TimelineFilter) ([]TimelineRow, shared.Pagination, error) {
	rows, total, err := s.repo.Timeline(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Export returns all rows matching the filter, unpaged.
func (s *Service) Export(ctx context.Context, filter TimelineFilter) ([]TimelineRow, error) {
	filter.Page = 1
	filter.PageSize = 100
	var all []TimelineRow
	for {
		rows, total, err := s.repo.Timeline(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(all) >= total || len(rows) == 0 {
			return all, nil
		}
		filter.Page++
	}
}
