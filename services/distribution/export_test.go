package distribution

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func TestWriteCSV(t *testing.T) {
	plan := samplePlan(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, plan))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	require.Equal(t, csvHeader, records[0])
	require.Equal(t, plan.ID, records[1][0])
	require.Equal(t, plan.Claims[0].Account.Hex(), records[1][3])
	require.Equal(t, "500", records[1][5])
	require.Equal(t, joinProof(plan.Claims[0]), records[1][6])
}

func TestExportWritesParquet(t *testing.T) {
	plan := samplePlan(t)
	dir := filepath.Join(t.TempDir(), "exports")
	csvPath, parquetPath, err := Export(dir, plan)
	require.NoError(t, err)
	require.FileExists(t, csvPath)

	fr, err := local.NewLocalFileReader(parquetPath)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(claimRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	rows := make([]claimRow, pr.GetNumRows())
	require.NoError(t, pr.Read(&rows))
	require.Len(t, rows, len(plan.Claims))
	require.Equal(t, plan.Claims[1].Account.Hex(), rows[1].Account)
	require.Equal(t, plan.Claims[1].Amount.String(), rows[1].Amount)
}
