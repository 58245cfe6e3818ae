package events

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tracelinehq/traceline-backend/pkg/logger"
	"github.com/tracelinehq/traceline-backend/pkg/tenant"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "events-test", Output: io.Discard})
	recorder := NewRecorder(logg, nil)
	tc := tenant.Context{OrganizationID: uuid.New(), ActorUserID: uuid.New()}

	payload, err := recorder.envelope(tc, map[string]string{"sku": "SKU-1"})
	require.NoError(t, err)

	envelope, err := DecodeEnvelope(payload)
	require.NoError(t, err)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.False(t, envelope.OccurredAt.IsZero())
	_, err = uuid.Parse(envelope.EventID)
	assert.NoError(t, err)

	require.NotNil(t, envelope.Actor)
	assert.Equal(t, tc.ActorUserID, envelope.Actor.UserID)
	assert.Equal(t, tc.OrganizationID, envelope.Actor.OrganizationID)

	var data map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "SKU-1", data["sku"])
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope(json.RawMessage(`not json`))
	assert.Error(t, err)
}
