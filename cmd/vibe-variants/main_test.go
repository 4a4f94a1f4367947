package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-variants/internal/variant"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	viper.Reset()

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestClassifyCmd(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"classify", "C", "A"}, "SNV"},
		{[]string{"classify", "-", "T"}, "INS"},
		{[]string{"classify", "AC", ""}, "DEL"},
		{[]string{"classify", "(CA)5", "(CA)7"}, "TANDEM_REPEAT"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestClassifyCmd_InvalidAllele(t *testing.T) {
	_, err := execute(t, "classify", "A", "<DEL>")
	require.Error(t, err)
	assert.True(t, errors.Is(err, variant.ErrInvalidAllele))
}

func TestClassifyCmd_InvalidLength(t *testing.T) {
	_, err := execute(t, "classify", "A", "C", "x")
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}

func TestKeyCmd(t *testing.T) {
	out, err := execute(t, "key", "12", "25245350", "C", "A")
	require.NoError(t, err)
	assert.Equal(t, "12_25245350_C_A\n", out)

	out, err = execute(t, "key", "1", "101", "-", "T")
	require.NoError(t, err)
	assert.Equal(t, "1_101__T\n", out)
}

func TestClassifyFileCmd(t *testing.T) {
	out, err := execute(t, "classify-file", filepath.Join("..", "..", "internal", "vcf", "testdata", "multi_sample.vcf"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "#Key\t"))
	assert.True(t, strings.HasPrefix(lines[1], "12_25245350_C_A\t"))
	assert.Contains(t, lines[5], "\tDEL\t")
}

func TestIngestCmd_Memory(t *testing.T) {
	out, err := execute(t, "ingest", "--backend", "memory", "--study", "s1",
		filepath.Join("..", "..", "internal", "maf", "testdata", "sample.maf"))
	require.NoError(t, err)

	keys := strings.Fields(out)
	assert.Len(t, keys, 5)
	assert.Contains(t, keys, "12_25398285_C_A")
	assert.Contains(t, keys, "17_37880999__GCATACGTGATG")
}

func TestIngestCmd_DuckDBThenLookup(t *testing.T) {
	db := filepath.Join(t.TempDir(), "v.duckdb")
	vcfPath := filepath.Join("..", "..", "internal", "vcf", "testdata", "multi_sample.vcf")

	_, err := execute(t, "ingest", "--duckdb-path", db, "--study", "s1", vcfPath)
	require.NoError(t, err)

	out, err := execute(t, "lookup", "--duckdb-path", db, "X_5001_AC_")
	require.NoError(t, err)
	assert.Contains(t, out, `"_id": "X_5001_AC_"`)
	assert.Contains(t, out, `"fid": "multi_sample.vcf"`)
}

func TestLookupCmd_MissingStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "missing", "v.duckdb")

	_, err := execute(t, "lookup", "--duckdb-path", db, "X_5001_AC_")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no store at")

	_, statErr := os.Stat(filepath.Dir(db))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestIngestCmd_RequiresStudy(t *testing.T) {
	_, err := execute(t, "ingest", "--backend", "memory", "x.vcf")
	var ue usageError
	assert.True(t, errors.As(err, &ue))
}

func TestIngestCmd_UnknownBackend(t *testing.T) {
	_, err := execute(t, "ingest", "--backend", "redis", "--study", "s",
		filepath.Join("..", "..", "internal", "vcf", "testdata", "multi_sample.vcf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend")
}

func TestConfigSetGet(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "set", "ingest.batch_size", "500"})
	require.NoError(t, root.Execute())

	raw, err := os.ReadFile(filepath.Join(home, ".vibe-variants.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "batch_size: 500")

	viper.Reset()
	out.Reset()
	root = newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"config", "get", "ingest.batch_size"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "500\n", out.String())
}
