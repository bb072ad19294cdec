package testutil

import (
	"context"
	"os"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationSuite gives each test a fresh working directory and a context
// bounded to five minutes. Embed it in a testify suite.
type IntegrationSuite struct {
	suite.Suite
	ctx    context.Context
	cancel context.CancelFunc
	dir    string
}

// SetupTest runs before each test
func (s *IntegrationSuite) SetupTest() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	dir, err := os.MkdirTemp("", "launchpad-test-*")
	require.NoError(s.T(), err)
	s.dir = dir
}

// TearDownTest runs after each test
func (s *IntegrationSuite) TearDownTest() {
	s.cancel()
	if err := os.RemoveAll(s.dir); err != nil {
		s.T().Logf("failed to remove %s: %v", s.dir, err)
	}
}

// Ctx returns the context of the running test
func (s *IntegrationSuite) Ctx() context.Context {
	return s.ctx
}

// Dir returns the working directory of the running test
func (s *IntegrationSuite) Dir() string {
	return s.dir
}

// WriteFile writes content to name below Dir and returns the full path
func (s *IntegrationSuite) WriteFile(name, content string) string {
	return WriteFile(s.T(), s.dir, name, content)
}
