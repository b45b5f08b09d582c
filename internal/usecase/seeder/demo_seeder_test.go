package seeder

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/investdash-backend/internal/adapter/repository/memory"
	"github.com/simaogato/investdash-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) List(ctx context.Context, filter domain.TransactionFilter) ([]*domain.Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTransactionRepository) NetAmount(ctx context.Context, symbol string, userID *int64) (decimal.Decimal, error) {
	args := m.Called(ctx, symbol, userID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) FindReference(ctx context.Context, symbol string, userID *int64) (*domain.Transaction, error) {
	args := m.Called(ctx, symbol, userID)
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) AppendSell(ctx context.Context, tx *domain.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func TestDemoSeeder_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("creates all entries on an empty ledger", func(t *testing.T) {
		// Setup
		mockRepo := new(MockTransactionRepository)
		seeder := NewDemoSeeder(mockRepo)
		for _, e := range DemoEntries {
			mockRepo.On("GetByID", ctx, e.ID).Return(nil, domain.NotFoundf("transaction %s not found", e.ID)).Once()
		}
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil).Times(len(DemoEntries))

		// Execute
		created, err := seeder.Seed(ctx)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, len(DemoEntries), created)
		mockRepo.AssertExpectations(t)
	})

	t.Run("skips existing entries", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		seeder := NewDemoSeeder(mockRepo)
		for _, e := range DemoEntries {
			mockRepo.On("GetByID", ctx, e.ID).Return(&domain.Transaction{ID: e.ID}, nil).Once()
		}

		created, err := seeder.Seed(ctx)

		require.NoError(t, err)
		assert.Equal(t, 0, created)
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("stops on lookup failure", func(t *testing.T) {
		mockRepo := new(MockTransactionRepository)
		seeder := NewDemoSeeder(mockRepo)
		mockRepo.On("GetByID", ctx, DemoEntries[0].ID).Return(nil, errors.New("connection refused"))

		_, err := seeder.Seed(ctx)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
		mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestDemoSeeder_IdempotentAndConsistent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewTransactionRepository()
	seeder := NewDemoSeeder(repo)

	created, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(DemoEntries), created)

	created, err = seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	userID := DemoUserID
	txs, err := repo.List(ctx, domain.TransactionFilter{UserID: &userID})
	require.NoError(t, err)
	assert.Len(t, txs, len(DemoEntries))

	// the demo sell never exceeds what was bought
	net, err := repo.NetAmount(ctx, "AAPL", &userID)
	require.NoError(t, err)
	assert.True(t, net.Equal(decimal.NewFromInt(12)))
}
