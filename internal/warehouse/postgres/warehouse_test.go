package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/pokeapi-ingest/internal/ingest"
)

func newMockWarehouse(t *testing.T) (*Warehouse, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	w, err := NewWithPool(mock)
	require.NoError(t, err)
	return w, mock
}

func TestListDatasets(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectQuery("SELECT schema_name FROM information_schema.schemata").
		WillReturnRows(pgxmock.NewRows([]string{"schema_name"}).AddRow("pokemon_data").AddRow("public"))

	ids, err := w.ListDatasets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pokemon_data", "public"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesFiltersBySchema(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectQuery("SELECT table_name FROM information_schema.tables WHERE table_schema").
		WithArgs("pokemon_data").
		WillReturnRows(pgxmock.NewRows([]string{"table_name"}).AddRow("pokemons"))

	ids, err := w.ListTables(context.Background(), "pokemon_data")
	require.NoError(t, err)
	assert.Equal(t, []string{"pokemons"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesQueryError(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectQuery("SELECT table_name").
		WithArgs("pokemon_data").
		WillReturnError(errors.New("connection reset"))

	_, err := w.ListTables(context.Background(), "pokemon_data")
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDataset(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE SCHEMA "pokemon_data"`)).
		WillReturnResult(pgxmock.NewResult("CREATE SCHEMA", 0))

	require.NoError(t, w.CreateDataset(context.Background(), "pokemon_data"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDatasetRejectsBadIdentifier(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	err := w.CreateDataset(context.Background(), "pokemon; DROP")
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTable(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	want := `CREATE TABLE "pokemon_data"."pokemons" ("id" BIGINT NOT NULL, "name" TEXT NOT NULL, "height" BIGINT NOT NULL, "weight" BIGINT NOT NULL)`
	mock.ExpectExec(regexp.QuoteMeta(want)).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, w.CreateTable(context.Background(), "pokemon_data", "pokemons", ingest.ItemSchema))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTableDuplicateSurfacesBackendError(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	dup := errors.New(`relation "pokemons" already exists`)
	mock.ExpectExec("CREATE TABLE").WillReturnError(dup)

	err := w.CreateTable(context.Background(), "pokemon_data", "pokemons", ingest.ItemSchema)
	assert.ErrorIs(t, err, dup)
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
}

func TestCreateTableSQLValidation(t *testing.T) {
	t.Parallel()

	_, err := createTableSQL("pokemon_data", "pokemons", nil)
	assert.Error(t, err)

	_, err = createTableSQL("pokemon_data", "pokemons", ingest.Schema{{Name: "x", Type: "GEOGRAPHY"}})
	assert.Error(t, err)

	got, err := createTableSQL("d", "t", ingest.Schema{{Name: "note", Type: ingest.FieldTypeString}})
	require.NoError(t, err)
	assert.Equal(t, `CREATE TABLE "d"."t" ("note" TEXT)`, got)
}

func TestInsertRowsCopies(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectCopyFrom(pgx.Identifier{"pokemon_data", "pokemons"}, []string{"id", "name", "height", "weight"}).
		WillReturnResult(2)

	rows := []ingest.Row{
		{ID: 1, Name: "bulbasaur", Height: 7, Weight: 69},
		{ID: 2, Name: "ivysaur", Height: 10, Weight: 130},
	}
	require.NoError(t, w.InsertRows(context.Background(), "pokemon_data", "pokemons", rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRowsShortCopy(t *testing.T) {
	t.Parallel()

	w, mock := newMockWarehouse(t)
	mock.ExpectCopyFrom(pgx.Identifier{"pokemon_data", "pokemons"}, []string{"id", "name", "height", "weight"}).
		WillReturnResult(0)

	err := w.InsertRows(context.Background(), "pokemon_data", "pokemons", []ingest.Row{{ID: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ingest.ErrWarehouse)
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	assert.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
