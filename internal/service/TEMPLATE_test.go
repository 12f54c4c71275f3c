// This file is a documentation template and should not be compiled.
// It uses placeholder types (ExampleService, ExampleRepository, etc.) that don't exist.
// Use this as a reference when writing tests for services.
//
//go:build ignore

package service

// TEMPLATE_test.go - Service Testing Pattern Examples
//
// This file demonstrates standard testing patterns for services.
// Use these patterns when writing tests for new services.

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ensembleops/recruitops/internal/domain/model"
)

// ═══════════════════════════════════════════════════════════════════════════
// PATTERN 1: Hand-Written Stubs (see stubs_test.go)
// ═══════════════════════════════════════════════════════════════════════════
//
// Services depend on the small port interfaces in internal/core, so a
// stub is a struct with function fields. Nil fields return zero values,
// letting each test wire only the calls it cares about.

type stubExampleRepo struct {
	createFn func(ctx context.Context, req model.CreateExampleRequest) (*model.Example, error)
	getFn    func(ctx context.Context, id string) (*model.Example, error)
	listFn   func(ctx context.Context, limit, offset int) ([]*model.Example, error)
	calls    int
}

func (s *stubExampleRepo) Create(ctx context.Context, req model.CreateExampleRequest) (*model.Example, error) {
	s.calls++
	if s.createFn == nil {
		return nil, nil
	}
	return s.createFn(ctx, req)
}

func (s *stubExampleRepo) GetByID(ctx context.Context, id string) (*model.Example, error) {
	s.calls++
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

func (s *stubExampleRepo) List(ctx context.Context, limit, offset int) ([]*model.Example, error) {
	s.calls++
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

type stubExampleCache struct {
	getFn func(ctx context.Context, id string) (*model.Example, error)
}

func (s *stubExampleCache) Get(ctx context.Context, id string) (*model.Example, error) {
	if s.getFn == nil {
		return nil, nil
	}
	return s.getFn(ctx, id)
}

// ═══════════════════════════════════════════════════════════════════════════
// PATTERN 2: Constructor Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestNewExampleService_RequiredDependency(t *testing.T) {
	// Constructor panics when a required dependency is nil.
	assert.Panics(t, func() {
		NewExampleService(ExampleServiceOptions{
			Repo: nil,
		})
	})
}

func TestNewExampleService_Success(t *testing.T) {
	svc := NewExampleService(ExampleServiceOptions{
		Repo: &stubExampleRepo{},
	})
	assert.NotNil(t, svc)
}

// ═══════════════════════════════════════════════════════════════════════════
// PATTERN 3: Success and Error Paths
// ═══════════════════════════════════════════════════════════════════════════

func TestExampleService_Create_Success(t *testing.T) {
	expected := &model.Example{ID: "example-1", Name: "test-example"}
	repo := &stubExampleRepo{
		createFn: func(_ context.Context, req model.CreateExampleRequest) (*model.Example, error) {
			assert.Equal(t, "test-example", req.Name)
			return expected, nil
		},
	}
	svc := NewExampleService(ExampleServiceOptions{Repo: repo})

	got, err := svc.Create(context.Background(), model.CreateExampleRequest{Name: "test-example"})

	require.NoError(t, err)
	assert.Equal(t, expected, got)
	assert.Equal(t, 1, repo.calls)
}

func TestExampleService_Create_RepositoryError(t *testing.T) {
	repoErr := errors.New("database connection failed")
	repo := &stubExampleRepo{
		createFn: func(context.Context, model.CreateExampleRequest) (*model.Example, error) {
			return nil, repoErr
		},
	}
	svc := NewExampleService(ExampleServiceOptions{Repo: repo})

	got, err := svc.Create(context.Background(), model.CreateExampleRequest{Name: "test"})

	require.Error(t, err)
	assert.Nil(t, got)
	// Services wrap repository errors with the operation name.
	assert.Contains(t, err.Error(), "create example")
	assert.ErrorIs(t, err, repoErr)
}

// ═══════════════════════════════════════════════════════════════════════════
// PATTERN 4: Optional Dependency Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestExampleService_GetByID_WithoutCache(t *testing.T) {
	fromDB := &model.Example{ID: "example-1", Name: "from-db"}
	repo := &stubExampleRepo{
		getFn: func(context.Context, string) (*model.Example, error) {
			return fromDB, nil
		},
	}
	// Cache nil: the service must fall through to the repository.
	svc := NewExampleService(ExampleServiceOptions{Repo: repo, Cache: nil})

	got, err := svc.GetByID(context.Background(), "example-1")

	require.NoError(t, err)
	assert.Equal(t, fromDB, got)
}

func TestExampleService_GetByID_CacheHitSkipsRepo(t *testing.T) {
	cached := &model.Example{ID: "example-1", Name: "cached"}
	repo := &stubExampleRepo{}
	cache := &stubExampleCache{
		getFn: func(context.Context, string) (*model.Example, error) {
			return cached, nil
		},
	}
	svc := NewExampleService(ExampleServiceOptions{Repo: repo, Cache: cache})

	got, err := svc.GetByID(context.Background(), "example-1")

	require.NoError(t, err)
	assert.Equal(t, cached, got)
	assert.Zero(t, repo.calls)
}

// ═══════════════════════════════════════════════════════════════════════════
// PATTERN 5: Table-Driven Tests
// ═══════════════════════════════════════════════════════════════════════════

func TestExampleService_List_PaginationNormalization(t *testing.T) {
	tests := []struct {
		name           string
		inputLimit     int
		inputOffset    int
		expectedLimit  int
		expectedOffset int
	}{
		{name: "zero limit defaults to 50", inputLimit: 0, expectedLimit: 50},
		{name: "negative limit defaults to 50", inputLimit: -10, expectedLimit: 50},
		{name: "limit over 1000 capped to 1000", inputLimit: 5000, expectedLimit: 1000},
		{name: "valid limit passed through", inputLimit: 100, inputOffset: 50, expectedLimit: 100, expectedOffset: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &stubExampleRepo{
				listFn: func(_ context.Context, limit, offset int) ([]*model.Example, error) {
					assert.Equal(t, tt.expectedLimit, limit)
					assert.Equal(t, tt.expectedOffset, offset)
					return nil, nil
				},
			}
			svc := NewExampleService(ExampleServiceOptions{Repo: repo})

			_, err := svc.List(context.Background(), tt.inputLimit, tt.inputOffset)
			require.NoError(t, err)
		})
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// NOTES FOR TEST WRITING
// ═══════════════════════════════════════════════════════════════════════════
//
// Best Practices:
// 1. Stub the port interfaces by hand in stubs_test.go; function fields
//    keep each test wiring only the calls it exercises
// 2. Use testify/require for assertions that should stop the test
// 3. Use testify/assert for assertions that should continue
// 4. Test both success and error cases
// 5. Test edge cases (nil, empty, invalid input)
// 6. Use table-driven tests for multiple similar cases
// 7. Name tests clearly: TestServiceName_MethodName_Scenario
// 8. Keep tests focused (one behavior per test)
// 9. Count stub calls to assert a dependency was (or was not) reached
// 10. Verify error wrapping with assert.ErrorIs or assert.Contains
//
// Integration Tests:
// - Live in internal/data alongside the repositories
// - Use testutil.WithTestDB for a real migrated database
// - Test actual database operations, transactions, and rollbacks
// - Skip automatically when the test database is not running
