package wsrouter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchRoutesByType(t *testing.T) {
	r := New()

	var got string
	r.Handle("PING", func(ctx context.Context, raw json.RawMessage) error {
		var msg struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		got = msg.Value
		return nil
	})

	err := r.Dispatch(context.Background(), []byte(`{"type":"PING","value":"hello"}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestDispatchUnknownType(t *testing.T) {
	r := New()

	err := r.Dispatch(context.Background(), []byte(`{"type":"NOPE"}`))
	assert.ErrorContains(t, err, "unknown message type")
}

func TestDispatchMalformedFrame(t *testing.T) {
	r := New()

	err := r.Dispatch(context.Background(), []byte(`{"type":`))
	assert.ErrorContains(t, err, "malformed frame")
}
