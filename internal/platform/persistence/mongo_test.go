package persistence

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoDB_CollectionAccessors(t *testing.T) {
	// mongo.Connect does not dial until the first operation.
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://localhost:27017"))
	require.NoError(t, err)
	database := client.Database("commission_ledger_test")

	mdb := &MongoDB{
		logger:   slog.New(slog.NewJSONHandler(io.Discard, nil)),
		client:   client,
		database: database,
	}

	assert.Equal(t, database, mdb.Database())
	assert.Equal(t, "ledger_events", mdb.Collection("ledger_events").Name())
}
