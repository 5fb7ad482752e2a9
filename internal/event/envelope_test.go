package event

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeInjectsType(t *testing.T) {
	body, err := Encode(TicketCreated{ID: "t1", Title: "concert", Price: 25, Version: 0})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Equal(t, "ticket.created", fields["type"])
	assert.Equal(t, "t1", fields["id"])
	assert.EqualValues(t, 0, fields["version"])
}

func TestDecodeRoundtrip(t *testing.T) {
	expires := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	body, err := Encode(OrderCreated{
		ID:        "o1",
		TicketID:  "t1",
		UserID:    "u1",
		Status:    OrderStatusCreated,
		Version:   0,
		ExpiresAt: expires,
		Price:     25,
	})
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)

	created, ok := decoded.(*OrderCreated)
	require.True(t, ok)
	assert.Equal(t, "o1", created.ID)
	assert.Equal(t, "t1", created.TicketID)
	assert.Equal(t, OrderStatusCreated, created.Status)
	assert.True(t, expires.Equal(created.ExpiresAt))
	assert.Equal(t, 25.0, created.Price)
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, err := Decode([]byte("{not json"))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Error(), "malformed")
}

func TestDecodeMissingType(t *testing.T) {
	_, err := Decode([]byte(`{"id":"t1","title":"x","price":1,"version":0}`))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
}

func TestDecodeMissingRequiredField(t *testing.T) {
	// ticket.updated without a version field.
	_, err := Decode([]byte(`{"type":"ticket.updated","id":"t1","title":"x","price":1}`))

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Contains(t, decodeErr.Error(), "version")
}

func TestDecodeZeroVersionIsPresent(t *testing.T) {
	// Presence is checked on the raw envelope, so version 0 must decode.
	decoded, err := Decode([]byte(`{"type":"ticket.created","id":"t1","title":"x","price":1,"version":0}`))
	require.NoError(t, err)

	created := decoded.(*TicketCreated)
	assert.Equal(t, 0, created.Version)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"ticket.archived","id":"t1"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeOptionalOrderID(t *testing.T) {
	decoded, err := Decode([]byte(`{"type":"ticket.updated","id":"t1","title":"x","price":1,"version":3,"orderId":"o1"}`))
	require.NoError(t, err)

	updated := decoded.(*TicketUpdated)
	require.NotNil(t, updated.OrderID)
	assert.Equal(t, "o1", *updated.OrderID)

	decoded, err = Decode([]byte(`{"type":"ticket.updated","id":"t1","title":"x","price":1,"version":4}`))
	require.NoError(t, err)
	assert.Nil(t, decoded.(*TicketUpdated).OrderID)
}
