// Package testutil provides testify mocks for the interfaces of the core
// library (pkg/converter and subpackages) plus small filesystem helpers.
package testutil

import (
	"context"
	"time"

	"github.com/PaddyThePaddy/crlf/pkg/converter"
	"github.com/PaddyThePaddy/crlf/pkg/converter/lineending"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock converter.CacheManager.
type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

func (m *MockCacheManager) Check(filePath string, size int64, modTime time.Time, configHash string) (lineending.Stats, bool) {
	args := m.Called(filePath, size, modTime, configHash)
	stats, _ := args.Get(0).(lineending.Stats)
	return stats, args.Bool(1)
}

func (m *MockCacheManager) Update(filePath string, size int64, modTime time.Time, configHash string, stats lineending.Stats) error {
	args := m.Called(filePath, size, modTime, configHash, stats)
	return args.Error(0)
}

func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

// MockDetector is a mock filetype.Detector.
type MockDetector struct {
	mock.Mock
}

func (m *MockDetector) IsBinary(sample []byte) bool {
	args := m.Called(sample)
	return args.Bool(0)
}

func (m *MockDetector) IsVendor(relPath string) bool {
	args := m.Called(relPath)
	return args.Bool(0)
}

// MockFileLister is a mock git.FileLister.
type MockFileLister struct {
	mock.Mock
}

func (m *MockFileLister) ListFiles(ctx context.Context, repoPath, pattern string) ([]string, error) {
	args := m.Called(ctx, repoPath, pattern)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

// MockHooks is a mock converter.Hooks. Expectations are usually set with
// mock.Anything for durations and messages.
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status converter.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report converter.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
