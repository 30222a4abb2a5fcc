package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrelationID(t *testing.T) {
	id := GenerateCorrelationID()
	assert.Len(t, id, 36)
	assert.NotEqual(t, id, GenerateCorrelationID())

	ctx := WithCorrelationID(context.Background(), id)
	assert.Equal(t, id, ExtractCorrelationID(ctx))
	assert.Empty(t, ExtractCorrelationID(context.Background()))
}

func TestRecordLikeTransition(t *testing.T) {
	before := testutil.ToFloat64(LikeTransitions.WithLabelValues("post", "like", "changed"))
	RecordLikeTransition("post", true, true)
	after := testutil.ToFloat64(LikeTransitions.WithLabelValues("post", "like", "changed"))
	assert.Equal(t, before+1, after)

	before = testutil.ToFloat64(LikeTransitions.WithLabelValues("comment", "unlike", "noop"))
	RecordLikeTransition("comment", false, false)
	assert.Equal(t, before+1, testutil.ToFloat64(LikeTransitions.WithLabelValues("comment", "unlike", "noop")))
}

func TestInitTracing_Disabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{ServiceName: "karmafeed-test"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	span, ctx := NewSpan(context.Background(), "test.span")
	assert.NotNil(t, ctx)
	span.SetError(errors.New("boom"))
	span.End()
}

func TestTraceLedgerQuery(t *testing.T) {
	ctx, span := TraceLedgerQuery(context.Background(), "top_karma", time.Now().Add(-time.Hour), 5)
	require.NotNil(t, ctx)
	span.End()

	_, span = TraceLedgerQuery(context.Background(), "actor_karma", time.Time{}, 0)
	span.End()
}
