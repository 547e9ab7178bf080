package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/pkg/config"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCatalogSeed_JSON(t *testing.T) {
	path := writeSeed(t, "catalogo.json", `{
		"warehouses": [{"id": "W1", "name": "Principal"}],
		"products": [{"id": "P1", "name": "Acetaminofén"}, {"id": "P2", "name": "Ibuprofeno"}],
		"variants": [{"id": "V1", "product_id": "P1", "name": "Caja x 10"}]
	}`)

	seed, err := config.LoadCatalogSeed(path)
	require.NoError(t, err)
	require.Len(t, seed.Warehouses, 1)
	assert.Equal(t, "Principal", seed.Warehouses[0].Name)
	assert.Len(t, seed.Products, 2)
	require.Len(t, seed.Variants, 1)
	assert.Equal(t, "P1", seed.Variants[0].ProductID)
}

func TestLoadCatalogSeed_VarianteSinProducto(t *testing.T) {
	path := writeSeed(t, "catalogo.json", `{"variants": [{"id": "V1"}]}`)
	_, err := config.LoadCatalogSeed(path)
	assert.Error(t, err)
}

func TestLoadCatalogSeed_ArchivoInexistente(t *testing.T) {
	_, err := config.LoadCatalogSeed(filepath.Join(t.TempDir(), "no-existe.json"))
	assert.Error(t, err)
}
