package service

import (
	"testing"

	"fortune/config"
	"fortune/events"

	"github.com/stretchr/testify/mock"
)

// Test utilities

func newTestUnitOfWork() (*MockUnitOfWorkFactory, *MockUnitOfWork) {
	mockUoW := NewMockUnitOfWork()
	mockFactory := new(MockUnitOfWorkFactory)
	mockFactory.On("Create").Return(mockUoW)
	return mockFactory, mockUoW
}

// setupBasicTransactionMocks expects a transaction that begins and always rolls back.
// Add a Commit expectation in tests where the operation succeeds.
func setupBasicTransactionMocks(mockUoW *MockUnitOfWork) {
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Rollback").Return(nil)
}

func setupCommittingTransactionMocks(mockUoW *MockUnitOfWork) {
	setupBasicTransactionMocks(mockUoW)
	mockUoW.On("Commit").Return(nil)
}

func eventOfType(eventType events.EventType) interface{} {
	return mock.MatchedBy(func(e events.Event) bool {
		return e.Type() == eventType
	})
}

func testConfig() *config.Config {
	return config.NewTestConfig()
}

func assertAllMockExpectations(t *testing.T, mocks ...interface{}) {
	for _, m := range mocks {
		if mockObj, ok := m.(interface{ AssertExpectations(mock.TestingT) bool }); ok {
			mockObj.AssertExpectations(t)
		}
	}
}
