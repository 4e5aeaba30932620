// Package mocks provides testify mocks for domain repositories.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// MockKeyValueRepository is a mock implementation of repository.KeyValueRepository.
type MockKeyValueRepository struct {
	mock.Mock
}

// NewMockKeyValueRepository creates a mock that asserts its expectations at cleanup.
func NewMockKeyValueRepository(t *testing.T) *MockKeyValueRepository {
	m := &MockKeyValueRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Get mocks the Get method.
func (m *MockKeyValueRepository) Get(ctx context.Context, key entity.StoreKey) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// Set mocks the Set method.
func (m *MockKeyValueRepository) Set(ctx context.Context, key entity.StoreKey, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Delete mocks the Delete method.
func (m *MockKeyValueRepository) Delete(ctx context.Context, key entity.StoreKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Take mocks the Take method.
func (m *MockKeyValueRepository) Take(ctx context.Context, key entity.StoreKey) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

// MockCookieJarRepository is a mock implementation of repository.CookieJarRepository.
type MockCookieJarRepository struct {
	mock.Mock
}

// NewMockCookieJarRepository creates a mock that asserts its expectations at cleanup.
func NewMockCookieJarRepository(t *testing.T) *MockCookieJarRepository {
	m := &MockCookieJarRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Load mocks the Load method.
func (m *MockCookieJarRepository) Load(ctx context.Context) (entity.CookieJar, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(entity.CookieJar), args.Error(1)
}

// Save mocks the Save method.
func (m *MockCookieJarRepository) Save(ctx context.Context, jar entity.CookieJar) error {
	args := m.Called(ctx, jar)
	return args.Error(0)
}
