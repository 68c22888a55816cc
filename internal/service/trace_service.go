package service

import (
	"context"

	"visuallm-be/internal/model"
	"visuallm-be/internal/repository"
)

const defaultTraceLimit = 50

type ITraceService interface {
	List(ctx context.Context, component string, limit int) ([]model.InteractionTrace, error)
}

type traceService struct {
	repo repository.TraceRepository
}

func NewTraceService(repo repository.TraceRepository) ITraceService {
	return &traceService{repo: repo}
}

func (s *traceService) List(ctx context.Context, component string, limit int) ([]model.InteractionTrace, error) {
	if limit <= 0 {
		limit = defaultTraceLimit
	}
	traces, err := s.repo.List(ctx, component, limit)
	if err != nil {
		return nil, err
	}
	if traces == nil {
		traces = []model.InteractionTrace{}
	}
	return traces, nil
}
