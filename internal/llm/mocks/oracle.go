package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"adaptivestory/internal/llm"
)

// MockOracle is a mock type for the llm.Oracle type
type MockOracle struct {
	mock.Mock
}

// Generate provides a mock function with given fields: ctx, prompt, params
func (_m *MockOracle) Generate(ctx context.Context, prompt llm.Prompt, params llm.Params) (string, error) {
	ret := _m.Called(ctx, prompt, params)

	var r0 string
	if rf, ok := ret.Get(0).(func(context.Context, llm.Prompt, llm.Params) string); ok {
		r0 = rf(ctx, prompt, params)
	} else if ret.Get(0) != nil {
		r0 = ret.Get(0).(string)
	}

	var r1 error
	if rf, ok := ret.Get(1).(func(context.Context, llm.Prompt, llm.Params) error); ok {
		r1 = rf(ctx, prompt, params)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockOracle creates a new instance of MockOracle. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewMockOracle(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockOracle {
	m := &MockOracle{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ llm.Oracle = (*MockOracle)(nil)
