package warehouse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
	"github.com/JakeFAU/pokeapi-ingest/internal/warehouse/memory"
)

type mockWarehouse struct {
	mock.Mock
}

func (m *mockWarehouse) ListDatasets(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockWarehouse) CreateDataset(ctx context.Context, datasetID string) error {
	return m.Called(ctx, datasetID).Error(0)
}

func (m *mockWarehouse) ListTables(ctx context.Context, datasetID string) ([]string, error) {
	args := m.Called(ctx, datasetID)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockWarehouse) CreateTable(ctx context.Context, datasetID, tableID string, schema ingest.Schema) error {
	return m.Called(ctx, datasetID, tableID, schema).Error(0)
}

func (m *mockWarehouse) InsertRows(ctx context.Context, datasetID, tableID string, rows []ingest.Row) error {
	return m.Called(ctx, datasetID, tableID, rows).Error(0)
}

func TestEnsureDatasetCreatesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wh := memory.New()
	p := NewProvisioner(wh, nil)

	created, err := p.EnsureDataset(ctx, "pokemon_data")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = p.EnsureDataset(ctx, "pokemon_data")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, wh.Calls().CreateDataset)
	assert.Equal(t, 2, wh.Calls().ListDatasets)
}

func TestEnsureTableCreatesOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wh := memory.New()
	require.NoError(t, wh.CreateDataset(ctx, "pokemon_data"))
	p := NewProvisioner(wh, nil)

	created, err := p.EnsureTable(ctx, "pokemon_data", "pokemons", ingest.ItemSchema)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = p.EnsureTable(ctx, "pokemon_data", "pokemons", ingest.ItemSchema)
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, 1, wh.Calls().CreateTable)
	schema, ok := wh.Schema("pokemon_data", "pokemons")
	require.True(t, ok)
	assert.Equal(t, ingest.ItemSchema, schema)
}

func TestEnsureDatasetSkipsCreateWhenListed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wh := &mockWarehouse{}
	wh.On("ListDatasets", ctx).Return([]string{"other", "pokemon_data"}, nil).Once()

	created, err := NewProvisioner(wh, nil).EnsureDataset(ctx, "pokemon_data")
	require.NoError(t, err)
	assert.False(t, created)
	wh.AssertExpectations(t)
	wh.AssertNotCalled(t, "CreateDataset", mock.Anything, mock.Anything)
}

func TestEnsureTableExistingSchemaUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wh := &mockWarehouse{}
	wh.On("ListTables", ctx, "pokemon_data").Return([]string{"pokemons"}, nil).Once()

	created, err := NewProvisioner(wh, nil).EnsureTable(ctx, "pokemon_data", "pokemons", ingest.Schema{{Name: "extra", Type: ingest.FieldTypeString}})
	require.NoError(t, err)
	assert.False(t, created)
	wh.AssertNotCalled(t, "CreateTable", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEnsureDatasetErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	listErr := ingest.WarehouseError("list datasets", errors.New("permission denied"))

	wh := &mockWarehouse{}
	wh.On("ListDatasets", ctx).Return(nil, listErr).Once()
	_, err := NewProvisioner(wh, nil).EnsureDataset(ctx, "pokemon_data")
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
	wh.AssertNotCalled(t, "CreateDataset", mock.Anything, mock.Anything)

	race := ingest.WarehouseError("create dataset", errors.New("already exists"))
	wh = &mockWarehouse{}
	wh.On("ListDatasets", ctx).Return([]string{}, nil).Once()
	wh.On("CreateDataset", ctx, "pokemon_data").Return(race).Once()
	_, err = NewProvisioner(wh, nil).EnsureDataset(ctx, "pokemon_data")
	assert.ErrorIs(t, err, race)
	wh.AssertExpectations(t)
}

func TestEnsureTableErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	wh := &mockWarehouse{}
	wh.On("ListTables", ctx, "pokemon_data").Return([]string{}, nil).Once()
	wh.On("CreateTable", ctx, "pokemon_data", "pokemons", ingest.ItemSchema).
		Return(ingest.WarehouseError("create table", errors.New("boom"))).Once()

	_, err := NewProvisioner(wh, nil).EnsureTable(ctx, "pokemon_data", "pokemons", ingest.ItemSchema)
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
	assert.Contains(t, err.Error(), "create table pokemon_data.pokemons")
	wh.AssertExpectations(t)
}
