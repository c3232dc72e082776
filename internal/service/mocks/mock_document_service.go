package mocks

import (
	"context"

	"docvault/internal/model"
	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, in service.UploadInput) (*model.DocumentMetadata, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) Retrieve(ctx context.Context, id, requesterID string, isAdmin bool) (*service.Document, error) {
	args := m.Called(ctx, id, requesterID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Document), args.Error(1)
}

func (m *MockDocumentService) GetMetadata(ctx context.Context, id, requesterID string, isAdmin bool) (*model.DocumentMetadata, error) {
	args := m.Called(ctx, id, requesterID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) Search(ctx context.Context, criteria map[string]string, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, criteria, requesterID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) FindByPath(ctx context.Context, prefix, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, prefix, requesterID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) FindByOwner(ctx context.Context, ownerID, requesterID string, isAdmin bool) ([]model.DocumentMetadata, error) {
	args := m.Called(ctx, ownerID, requesterID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMetadata), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id, requesterID string, isAdmin bool) error {
	args := m.Called(ctx, id, requesterID, isAdmin)
	return args.Error(0)
}
