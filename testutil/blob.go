package testutil

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/cppla/wallpress/storage"
)

// MockBlobService is a testify mock of storage.BlobService. Upload drains the
// body before returning so callers see the same behaviour as a real backend.
type MockBlobService struct {
	mock.Mock
}

func (m *MockBlobService) Upload(ctx context.Context, in storage.UploadInput) (*storage.StoredObject, error) {
	if in.Body != nil {
		_, _ = io.Copy(io.Discard, in.Body)
	}
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoredObject), args.Error(1)
}

func (m *MockBlobService) Delete(ctx context.Context, owner storage.Identity, key string) error {
	args := m.Called(ctx, owner, key)
	return args.Error(0)
}

func (m *MockBlobService) Usage(ctx context.Context, owner storage.Identity) (*storage.Usage, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Usage), args.Error(1)
}
