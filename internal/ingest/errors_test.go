package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("fetch page: %w", TransportError("get listing", errors.New("boom")))

	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrStorage)
	assert.NotErrorIs(t, err, ErrWarehouse)
	assert.Equal(t, KindTransport, KindOf(err))
}

func TestErrorUnwrapsCause(t *testing.T) {
	t.Parallel()

	err := WarehouseError("insert rows", context.DeadlineExceeded)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "warehouse error: insert rows: context deadline exceeded", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestRowsFromItemsKeepsOrder(t *testing.T) {
	t.Parallel()

	items := []ItemRecord{
		{ID: 2, Name: "ivysaur", Height: 10, Weight: 130},
		{ID: 1, Name: "bulbasaur", Height: 7, Weight: 69},
	}

	rows := RowsFromItems(items)

	require.Len(t, rows, 2)
	assert.Equal(t, Row{ID: 2, Name: "ivysaur", Height: 10, Weight: 130}, rows[0])
	assert.Equal(t, Row{ID: 1, Name: "bulbasaur", Height: 7, Weight: 69}, rows[1])
}

func TestListingNextURL(t *testing.T) {
	t.Parallel()

	next := "https://pokeapi.co/api/v2/pokemon?offset=10&limit=10"
	assert.Equal(t, next, Listing{Next: &next}.NextURL())
	assert.Equal(t, "", Listing{}.NextURL())
}

func TestItemSchemaColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"id", "name", "height", "weight"}, ItemSchema.Columns())
	for _, f := range ItemSchema {
		assert.True(t, f.Required, f.Name)
	}
}
