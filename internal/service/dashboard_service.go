package service

import (
	"context"

	"datalink/internal/domain"
)

// DashboardStats summarises the home page.
type DashboardStats struct {
	TotalConnections   int                  `json:"totalConnections"`
	ActiveConnections  int                  `json:"activeConnections"`
	RecentQueries      int                  `json:"recentQueries"`
	AverageExecutionMs int                  `json:"averageExecutionMs"`
	ActiveConnection   *domain.Connection   `json:"activeConnection"`
	Recent             []domain.QueryRecord `json:"recent"`
}

// DefaultRecentQueries is how many history entries the dashboard shows.
const DefaultRecentQueries = 5

// DashboardService aggregates connection and history counts.
type DashboardService struct {
	conns   domain.ConnectionStore
	queries domain.QueryLogStore
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(conns domain.ConnectionStore, queries domain.QueryLogStore) *DashboardService {
	return &DashboardService{conns: conns, queries: queries}
}

// Stats returns the counts plus the most recent history entries.
func (s *DashboardService) Stats(ctx context.Context, recent int) (*DashboardStats, error) {
	if recent <= 0 {
		recent = DefaultRecentQueries
	}
	conns, err := s.conns.ListConnections(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.queries.ListQueries(ctx, domain.QueryFilter{Limit: recent})
	if err != nil {
		return nil, err
	}

	stats := &DashboardStats{
		TotalConnections: len(conns),
		RecentQueries:    len(history),
		Recent:           history,
	}
	for i := range conns {
		if conns[i].IsActive {
			stats.ActiveConnections++
			if stats.ActiveConnection == nil {
				c := conns[i]
				stats.ActiveConnection = &c
			}
		}
	}
	total, executed := 0, 0
	for i := range history {
		if history[i].IsDraft() {
			continue
		}
		total += history[i].ExecutionTimeMs
		executed++
	}
	if executed > 0 {
		stats.AverageExecutionMs = total / executed
	}
	for i := range stats.Recent {
		stats.Recent[i].Rows = nil
		stats.Recent[i].Columns = nil
	}
	return stats, nil
}
