//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/simaogato/investdash-backend/internal/adapter/auth"
	grpcadapter "github.com/simaogato/investdash-backend/internal/adapter/grpc"
	"github.com/simaogato/investdash-backend/internal/adapter/repository/postgres"
)

var (
	db       *postgres.DB
	grpcConn *grpc.ClientConn
	tokens   *auth.TokenManager
	// testUserID isolates this run's ledger from other data in the database
	testUserID = time.Now().UnixNano() % 1_000_000_000
)

// TestMain sets up the test environment
func TestMain(m *testing.M) {
	ctx := context.Background()

	// 1. Connect to Database
	var err error
	db, err = postgres.NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	if err := db.Migrate(ctx); err != nil {
		panic(fmt.Sprintf("Failed to migrate database: %v", err))
	}

	// 2. Connect to gRPC Server
	grpcConn, err = grpc.NewClient(getGRPCAddress(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to gRPC server: %v", err))
	}

	// 3. Sessions are signed with the server's secret
	tokens = auth.NewTokenManager(getJWTSecret(), time.Hour)

	// Run tests
	code := m.Run()

	// 4. Remove this run's ledger
	if _, err := db.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1`, testUserID); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to clean up test ledger: %v\n", err)
	}
	grpcConn.Close()
	db.Close()

	os.Exit(code)
}

func newClient(t *testing.T) *grpcadapter.Client {
	t.Helper()
	token, err := tokens.Issue(testUserID, "integration")
	require.NoError(t, err)
	return grpcadapter.NewClient(grpcConn, token)
}

// getDBConnectionString builds the connection string from environment variables
func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "investdash"),
	)
}

// getGRPCAddress returns the gRPC server address
func getGRPCAddress() string {
	return getEnv("GRPC_ADDRESS", "localhost:8080")
}

func getJWTSecret() string {
	return getEnv("JWT_SECRET", "integration-secret-integration-secret")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// TestEndToEndFlow records buys, sells part of the position and reads analytics back
func TestEndToEndFlow(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	symbol := fmt.Sprintf("E2E%d", testUserID%100000)

	// Step 1: Record two buys
	for _, b := range []struct{ amount, price, date string }{
		{"10", "100", "2024-01-05"},
		{"5", "120", "2024-02-10"},
	} {
		_, err := client.Call(ctx, "CreateTransaction", map[string]interface{}{
			"name":            "End to end",
			"symbol":          symbol,
			"investment_type": "stocks",
			"amount":          b.amount,
			"purchase_price":  b.price,
			"purchase_date":   b.date,
		})
		require.NoError(t, err, "CreateTransaction should succeed")
	}

	// Step 2: Oversell is rejected and leaves the ledger untouched
	_, err := client.Call(ctx, "Sell", map[string]interface{}{
		"symbol": symbol, "amount": "16", "sale_price": "150", "sale_date": "2024-03-01",
	})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	// Step 3: Partial sell
	_, err = client.Call(ctx, "Sell", map[string]interface{}{
		"symbol": symbol, "amount": "3", "sale_price": "150", "sale_date": "2024-03-01",
	})
	require.NoError(t, err)

	// Step 4: Verify DB state
	var net string
	err = db.QueryRowContext(ctx,
		`SELECT SUM(amount)::text FROM transactions WHERE symbol = $1 AND user_id = $2`,
		symbol, testUserID).Scan(&net)
	require.NoError(t, err)
	assert.Equal(t, "12.0000000000", net)

	// Step 5: Verify analytics over the wire
	series, err := client.Call(ctx, "EarningsTimeseries", map[string]interface{}{"granularity": "month"})
	require.NoError(t, err)
	snapshots := series["snapshots"].([]interface{})
	require.NotEmpty(t, snapshots)
	last := snapshots[len(snapshots)-1].(map[string]interface{})
	assert.Equal(t, "2024-03", last["date"])
	assert.Equal(t, "1280.00", last["invested"])
}

// TestConcurrentSells fires sells in parallel and checks the position never goes negative
func TestConcurrentSells(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)
	symbol := fmt.Sprintf("RACE%d", testUserID%100000)

	_, err := client.Call(ctx, "CreateTransaction", map[string]interface{}{
		"name": "Race", "symbol": symbol, "investment_type": "crypto",
		"amount": "10", "purchase_price": "1", "purchase_date": "2024-01-01",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Call(ctx, "Sell", map[string]interface{}{
				"symbol": symbol, "amount": "4", "sale_price": "2", "sale_date": "2024-02-01",
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, succeeded)

	var net string
	err = db.QueryRowContext(ctx,
		`SELECT SUM(amount)::text FROM transactions WHERE symbol = $1 AND user_id = $2`,
		symbol, testUserID).Scan(&net)
	require.NoError(t, err)
	assert.Equal(t, "2.0000000000", net)
}
