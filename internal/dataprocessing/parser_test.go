package dataprocessing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveSchema(t *testing.T) {
	mapping := DefaultColumnMapping()
	header := []string{"id", "user_company(所属)", "user_name", "自転車メーカー名", "battery_remaining", "車両番号", "交換日時", "交換元組織", "交換元部署"}

	schema, err := ResolveSchema(header, mapping)
	require.NoError(t, err)

	assert.Equal(t, 1, schema.Client)
	assert.Equal(t, 2, schema.User)
	assert.Equal(t, 3, schema.Manufacturer)
	assert.Equal(t, 4, schema.Battery)
	assert.Equal(t, 5, schema.Vehicle)
	assert.Equal(t, 6, schema.Timestamp)
	assert.Equal(t, 7, schema.SourceEntity)
	assert.Equal(t, 8, schema.SourceGroup)
}

func TestResolveSchema_MissingClientColumn(t *testing.T) {
	header := []string{"user_name", "自転車メーカー名"}

	_, err := ResolveSchema(header, DefaultColumnMapping())
	require.Error(t, err)

	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "client", missing.Role)
	assert.Equal(t, []string{"user_name", "自転車メーカー名"}, missing.Available)
	assert.Contains(t, err.Error(), "user_name")
}

func TestResolveSchema_OptionalColumnsAbsent(t *testing.T) {
	header := []string{"user_company(所属)", "user_name"}

	schema, err := ResolveSchema(header, DefaultColumnMapping())
	require.NoError(t, err)

	assert.Equal(t, 0, schema.Client)
	assert.Equal(t, -1, schema.Battery)
	assert.Equal(t, -1, schema.Vehicle)
	assert.Equal(t, -1, schema.Timestamp)
}

func TestParseRows(t *testing.T) {
	rows := [][]string{
		{"バッテリー交換実績 2025-07"},
		{},
		{"user_company(所属)", "user_name", "自転車メーカー名", "battery_remaining", "車両番号", "交換日時", "交換元組織"},
		{"ClientA", "userX", "Panasonic", "30", "veh1", "2025-07-01 09:00:00", ""},
		{"ClientA", "userX", "Panasonic", "", "veh1", "not a date", "EntityA"},
		{" ClientB ", "userY", "KUROAD", "87.5%", "", "", ""},
		{},
	}

	records, _, err := ParseRows(rows, DefaultColumnMapping())
	require.NoError(t, err)
	require.Len(t, records, 3)

	first := records[0]
	assert.Equal(t, "ClientA", first.Client)
	assert.Equal(t, "userX", first.User)
	require.NotNil(t, first.Battery)
	assert.Equal(t, 30.0, *first.Battery)
	assert.True(t, first.TimeValid)
	assert.Equal(t, time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC), first.ExchangedAt)

	// Absent battery and unparsable timestamp recover locally.
	second := records[1]
	assert.Nil(t, second.Battery)
	assert.False(t, second.TimeValid)
	assert.Equal(t, "EntityA", second.SourceEntity)

	// Cells are trimmed, percent suffix stripped.
	third := records[2]
	assert.Equal(t, "ClientB", third.Client)
	require.NotNil(t, third.Battery)
	assert.Equal(t, 87.5, *third.Battery)
	assert.Equal(t, "", third.Vehicle)
}

func TestParseRows_KeepsRawCellsAndHeader(t *testing.T) {
	rows := [][]string{
		{"user_company(所属)", "user_name", "memo"},
		{"ClientA", "userX", "important-note"},
	}

	records, header, err := ParseRows(rows, DefaultColumnMapping())
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Unmapped columns survive in Raw and in the returned header.
	assert.Equal(t, []string{"ClientA", "userX", "important-note"}, records[0].Raw)
	assert.Equal(t, []string{"user_company(所属)", "user_name", "memo"}, header)
}

func TestParseRows_MissingClientColumnFailsFast(t *testing.T) {
	rows := [][]string{
		{"user_name", "自転車メーカー名"},
		{"userX", "Panasonic"},
	}

	_, _, err := ParseRows(rows, DefaultColumnMapping())
	var missing *MissingColumnError
	require.ErrorAs(t, err, &missing)
}

func TestParseRows_EmptyInput(t *testing.T) {
	_, _, err := ParseRows(nil, DefaultColumnMapping())
	assert.Error(t, err)
}

func TestParseRows_ShortRows(t *testing.T) {
	rows := [][]string{
		{"user_company(所属)", "user_name", "自転車メーカー名"},
		{"ClientA"},
	}

	records, _, err := ParseRows(rows, DefaultColumnMapping())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ClientA", records[0].Client)
	assert.Equal(t, "", records[0].User)
}
