// Package mocks provides testify mocks for application ports.
package mocks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
)

// MockRemoteConfigClient is a mock implementation of port.RemoteConfigClient.
type MockRemoteConfigClient struct {
	mock.Mock
}

// NewMockRemoteConfigClient creates a mock that asserts its expectations at cleanup.
func NewMockRemoteConfigClient(t *testing.T) *MockRemoteConfigClient {
	m := &MockRemoteConfigClient{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// FetchRoute mocks the FetchRoute method.
func (m *MockRemoteConfigClient) FetchRoute(ctx context.Context, req port.RouteRequest) (*port.RouteResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RouteResponse), args.Error(1)
}

// MockOrganicVerifier is a mock implementation of port.OrganicVerifier.
type MockOrganicVerifier struct {
	mock.Mock
}

// NewMockOrganicVerifier creates a mock that asserts its expectations at cleanup.
func NewMockOrganicVerifier(t *testing.T) *MockOrganicVerifier {
	m := &MockOrganicVerifier{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Verify mocks the Verify method.
func (m *MockOrganicVerifier) Verify(ctx context.Context, attributionID string) error {
	args := m.Called(ctx, attributionID)
	return args.Error(0)
}

// MockDeviceInfoProvider is a mock implementation of port.DeviceInfoProvider.
type MockDeviceInfoProvider struct {
	mock.Mock
}

// NewMockDeviceInfoProvider creates a mock that asserts its expectations at cleanup.
func NewMockDeviceInfoProvider(t *testing.T) *MockDeviceInfoProvider {
	m := &MockDeviceInfoProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// DeviceInfo mocks the DeviceInfo method.
func (m *MockDeviceInfoProvider) DeviceInfo(ctx context.Context) port.DeviceInfo {
	args := m.Called(ctx)
	return args.Get(0).(port.DeviceInfo)
}

// MockPushPermission is a mock implementation of port.PushPermission.
type MockPushPermission struct {
	mock.Mock
}

// NewMockPushPermission creates a mock that asserts its expectations at cleanup.
func NewMockPushPermission(t *testing.T) *MockPushPermission {
	m := &MockPushPermission{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// RequestAuthorization mocks the RequestAuthorization method.
func (m *MockPushPermission) RequestAuthorization(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// RegisterForRemoteNotifications mocks the RegisterForRemoteNotifications method.
func (m *MockPushPermission) RegisterForRemoteNotifications(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockExternalURLOpener is a mock implementation of port.ExternalURLOpener.
type MockExternalURLOpener struct {
	mock.Mock
}

// NewMockExternalURLOpener creates a mock that asserts its expectations at cleanup.
func NewMockExternalURLOpener(t *testing.T) *MockExternalURLOpener {
	m := &MockExternalURLOpener{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// Open mocks the Open method.
func (m *MockExternalURLOpener) Open(ctx context.Context, uri string) error {
	args := m.Called(ctx, uri)
	return args.Error(0)
}

// MockCookieStore is a mock implementation of port.CookieStore.
type MockCookieStore struct {
	mock.Mock
}

// NewMockCookieStore creates a mock that asserts its expectations at cleanup.
func NewMockCookieStore(t *testing.T) *MockCookieStore {
	m := &MockCookieStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// AllCookies mocks the AllCookies method.
func (m *MockCookieStore) AllCookies(ctx context.Context) ([]entity.CookieRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CookieRecord), args.Error(1)
}

// SetCookie mocks the SetCookie method.
func (m *MockCookieStore) SetCookie(ctx context.Context, cookie entity.CookieRecord) error {
	args := m.Called(ctx, cookie)
	return args.Error(0)
}
