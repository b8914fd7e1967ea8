package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"insightsapi/internal/model"
)

type MockInsightService struct {
	mock.Mock
}

func (m *MockInsightService) List(ctx context.Context) []model.Insight {
	args := m.Called(ctx)
	return args.Get(0).([]model.Insight)
}

func (m *MockInsightService) Published(ctx context.Context) []model.Insight {
	args := m.Called(ctx)
	return args.Get(0).([]model.Insight)
}

func (m *MockInsightService) FindBySlug(ctx context.Context, s string) (*model.Insight, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Insight), args.Error(1)
}

func (m *MockInsightService) Add(ctx context.Context, input *model.InsightInput) (*model.Insight, []model.Insight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Insight), args.Get(1).([]model.Insight), args.Error(2)
}

func (m *MockInsightService) Edit(ctx context.Context, index int, patch *model.InsightInput) (*model.Insight, []model.Insight, error) {
	args := m.Called(ctx, index, patch)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Insight), args.Get(1).([]model.Insight), args.Error(2)
}

func (m *MockInsightService) Delete(ctx context.Context, index int) (*model.Insight, []model.Insight, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Insight), args.Get(1).([]model.Insight), args.Error(2)
}

func (m *MockInsightService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
