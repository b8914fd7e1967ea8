package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"insightsapi/internal/remote"
)

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Get(ctx context.Context, path string) (remote.File, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(remote.File), args.Error(1)
}

func (m *MockFileStore) Put(ctx context.Context, path string, content []byte, sha, message string) (string, error) {
	args := m.Called(ctx, path, content, sha, message)
	return args.String(0), args.Error(1)
}
