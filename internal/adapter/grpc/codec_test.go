package grpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/investdash-backend/internal/domain"
)

func mustFields(t *testing.T, m map[string]interface{}) fields {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return fieldsOf(s)
}

func TestFields_Decimal(t *testing.T) {
	f := mustFields(t, map[string]interface{}{
		"text":   "0.10000001",
		"number": 2.5,
		"bad":    "ten",
		"null":   nil,
		"flag":   true,
	})

	d, err := f.dec("text")
	require.NoError(t, err)
	assert.Equal(t, "0.10000001", d.String())

	d, err = f.dec("number")
	require.NoError(t, err)
	assert.Equal(t, "2.5", d.String())

	d, err = f.dec("null")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = f.dec("bad")
	assert.True(t, domain.IsInvalidRequest(err))
	_, err = f.dec("flag")
	assert.True(t, domain.IsInvalidRequest(err))

	_, err = f.requiredDec("missing")
	assert.True(t, domain.IsInvalidRequest(err))
}

func TestFields_Integer(t *testing.T) {
	f := mustFields(t, map[string]interface{}{"limit": 25, "text": "7", "frac": 1.5})

	n, err := f.integer("limit")
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	n, err = f.integer("text")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	n, err = f.integer("absent")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = f.integer("frac")
	assert.True(t, domain.IsInvalidRequest(err))
}

func TestFields_StringsAndDates(t *testing.T) {
	f := mustFields(t, map[string]interface{}{"symbol": "  ", "date": "2024-02-29", "num": 3})

	_, err := f.requiredStr("symbol")
	assert.True(t, domain.IsInvalidRequest(err))

	_, err = f.str("num")
	assert.True(t, domain.IsInvalidRequest(err))

	d, err := f.requiredDate("date")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.Format(domain.DateLayout))

	assert.NoError(t, f.only("symbol", "date", "num"))
	assert.Error(t, f.only("symbol"))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil))
	assert.Equal(t, "NotFound", statusCode(mapError(domain.NotFoundf("gone"))))
	assert.Equal(t, "InvalidArgument", statusCode(mapError(domain.Validationf("bad"))))
	assert.Equal(t, "InvalidArgument", statusCode(mapError(domain.InsufficientPosition("AAPL", "1", "2"))))
	assert.Equal(t, "Internal", statusCode(mapError(assert.AnError)))
}

func statusCode(err error) string {
	st, _ := status.FromError(err)
	return st.Code().String()
}
