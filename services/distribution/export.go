package distribution

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

var csvHeader = []string{"plan_id", "vault", "epoch", "account", "balance", "amount", "proof"}

// WriteCSV writes one row per claim. Proof hashes are joined with ";".
func WriteCSV(w io.Writer, plan *Plan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("distribution: write csv header: %w", err)
	}
	for _, c := range plan.Claims {
		if err := cw.Write([]string{
			plan.ID,
			plan.Vault.Hex(),
			strconv.FormatUint(plan.Epoch, 10),
			c.Account.Hex(),
			c.Balance.String(),
			c.Amount.String(),
			joinProof(c),
		}); err != nil {
			return fmt.Errorf("distribution: write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("distribution: flush csv: %w", err)
	}
	return nil
}

func joinProof(c Claim) string {
	parts := make([]string, len(c.Proof))
	for i, h := range c.Proof {
		parts[i] = h.Hex()
	}
	return strings.Join(parts, ";")
}

type claimRow struct {
	PlanID  string `parquet:"name=plan_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Vault   string `parquet:"name=vault, type=BYTE_ARRAY, convertedtype=UTF8"`
	Epoch   int64  `parquet:"name=epoch, type=INT64"`
	Account string `parquet:"name=account, type=BYTE_ARRAY, convertedtype=UTF8"`
	Balance string `parquet:"name=balance, type=BYTE_ARRAY, convertedtype=UTF8"`
	Amount  string `parquet:"name=amount, type=BYTE_ARRAY, convertedtype=UTF8"`
	Proof   string `parquet:"name=proof, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// WriteParquet writes the claim sheet as a Snappy-compressed Parquet file.
func WriteParquet(path string, plan *Plan) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("distribution: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(claimRow), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("distribution: parquet schema: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, c := range plan.Claims {
		row := &claimRow{
			PlanID:  plan.ID,
			Vault:   plan.Vault.Hex(),
			Epoch:   int64(plan.Epoch),
			Account: c.Account.Hex(),
			Balance: c.Balance.String(),
			Amount:  c.Amount.String(),
			Proof:   joinProof(c),
		}
		if err := pw.Write(row); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("distribution: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("distribution: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("distribution: close parquet file: %w", err)
	}
	return nil
}

// Export writes <dir>/<plan id>.csv and <dir>/<plan id>.parquet.
func Export(dir string, plan *Plan) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("distribution: export dir: %w", err)
	}
	csvPath := filepath.Join(dir, plan.ID+".csv")
	file, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("distribution: create csv: %w", err)
	}
	if err := WriteCSV(file, plan); err != nil {
		file.Close()
		return "", "", err
	}
	if err := file.Close(); err != nil {
		return "", "", err
	}
	parquetPath := filepath.Join(dir, plan.ID+".parquet")
	if err := WriteParquet(parquetPath, plan); err != nil {
		return "", "", err
	}
	return csvPath, parquetPath, nil
}
