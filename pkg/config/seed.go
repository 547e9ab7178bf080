package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// CatalogSeed datos de referencia para el driver en memoria (bodegas, productos, variantes).
type CatalogSeed struct {
	Warehouses []SeedWarehouse `mapstructure:"warehouses"`
	Products   []SeedProduct   `mapstructure:"products"`
	Variants   []SeedVariant   `mapstructure:"variants"`
}

type SeedWarehouse struct {
	ID      string `mapstructure:"id"`
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

type SeedProduct struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type SeedVariant struct {
	ID        string `mapstructure:"id"`
	ProductID string `mapstructure:"product_id"`
	Name      string `mapstructure:"name"`
}

// LoadCatalogSeed lee el archivo de semilla (json, yaml o toml según la extensión).
func LoadCatalogSeed(path string) (*CatalogSeed, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("leer semilla %s: %w", path, err)
	}
	var seed CatalogSeed
	if err := v.Unmarshal(&seed); err != nil {
		return nil, fmt.Errorf("decodificar semilla %s: %w", path, err)
	}
	for i, w := range seed.Warehouses {
		if w.ID == "" {
			return nil, fmt.Errorf("semilla: bodega %d sin id", i)
		}
	}
	for i, p := range seed.Products {
		if p.ID == "" {
			return nil, fmt.Errorf("semilla: producto %d sin id", i)
		}
	}
	for i, vr := range seed.Variants {
		if vr.ID == "" || vr.ProductID == "" {
			return nil, fmt.Errorf("semilla: variante %d sin id o product_id", i)
		}
	}
	return &seed, nil
}
