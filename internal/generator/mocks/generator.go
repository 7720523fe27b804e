// Package mocks contains testify mocks for the generator package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storypath-server/internal/generator"
)

// Generator is a mock implementation of generator.Generator.
type Generator struct {
	mock.Mock
}

func (m *Generator) Generate(ctx context.Context, prompt, genre string, isContinuation bool) (*generator.Segment, error) {
	args := m.Called(ctx, prompt, genre, isContinuation)
	if seg, ok := args.Get(0).(*generator.Segment); ok {
		return seg, args.Error(1)
	}
	return nil, args.Error(1)
}
