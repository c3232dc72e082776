package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) Save(ctx context.Context, doc *model.DocumentMetadata) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockMetadataRepository) FindByID(ctx context.Context, id string) (*model.DocumentMetadata, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentMetadata), args.Error(1)
}

func (m *MockMetadataRepository) SearchByAttributes(ctx context.Context, criteria map[string]string) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockMetadataRepository) FindByPathPrefix(ctx context.Context, prefix string) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockMetadataRepository) FindByOwner(ctx context.Context, ownerID string) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockMetadataRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
