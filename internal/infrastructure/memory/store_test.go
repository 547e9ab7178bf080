package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

var lineID = entity.Identity{ProductID: "P1", WarehouseID: "W1"}

func TestRun_RollbackDescartaEscrituras(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.Run(ctx, func(repos inventory.TxRepos) error {
		line, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10)
		require.NoError(t, err)
		line.Quantity = 99
		require.NoError(t, repos.Lines.Update(ctx, line))
		require.NoError(t, repos.Ledger.Create(ctx, &entity.LedgerEntry{InventoryLineID: line.ID, Kind: entity.MovementIN, Quantity: 99}))

		// Dentro de la tx se lee lo propio
		own, err := repos.Lines.Get(ctx, lineID)
		require.NoError(t, err)
		assert.Equal(t, int64(99), own.Quantity)
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)

	line, err := store.Lines().Get(ctx, lineID)
	require.NoError(t, err)
	assert.Nil(t, line, "la línea creada en la tx descartada no existe")
}

func TestRun_CommitVisibleFueraDeLaTx(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	err := store.Run(ctx, func(repos inventory.TxRepos) error {
		line, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10)
		if err != nil {
			return err
		}
		line.Quantity = 7
		return repos.Lines.Update(ctx, line)
	})
	require.NoError(t, err)

	line, err := store.Lines().Get(ctx, lineID)
	require.NoError(t, err)
	require.NotNil(t, line)
	assert.Equal(t, int64(7), line.Quantity)
	assert.Equal(t, int64(10), line.LowStockThreshold)
}

func TestRun_BloqueoAgotaEspera(t *testing.T) {
	store := memory.New(memory.WithLockTimeout(50 * time.Millisecond))
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = store.Run(ctx, func(repos inventory.TxRepos) error {
			if _, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	err := store.Run(ctx, func(repos inventory.TxRepos) error {
		_, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10)
		return err
	})
	assert.True(t, errors.Is(err, domain.ErrConcurrencyTimeout), "debe agotar la espera: %v", err)
}

func TestRun_BloqueoReentranteEnLaMismaTx(t *testing.T) {
	store := memory.New(memory.WithLockTimeout(50 * time.Millisecond))
	ctx := context.Background()

	err := store.Run(ctx, func(repos inventory.TxRepos) error {
		if _, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10); err != nil {
			return err
		}
		_, err := repos.Lines.GetOrCreateForUpdate(ctx, lineID, 10)
		return err
	})
	assert.NoError(t, err)
}

func TestAlerts_UnaAbiertaPorLinea(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	alerts := store.Alerts()

	created, err := alerts.CreateIfAbsent(ctx, &entity.LowStockAlert{ID: "a1", InventoryLineID: "L1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = alerts.CreateIfAbsent(ctx, &entity.LowStockAlert{ID: "a2", InventoryLineID: "L1"})
	require.NoError(t, err)
	assert.False(t, created)

	ok, err := alerts.Resolve(ctx, "a1", time.Now())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = alerts.Resolve(ctx, "a1", time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "ya estaba resuelta")

	created, err = alerts.CreateIfAbsent(ctx, &entity.LowStockAlert{ID: "a3", InventoryLineID: "L1"})
	require.NoError(t, err)
	assert.True(t, created, "tras resolver se puede abrir otra")
}

func TestAddVariant_ProductoInexistente(t *testing.T) {
	store := memory.New()
	err := store.AddVariant(entity.Variant{ID: "V1", ProductID: "NOPE"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSeed_CatalogoDisponibleParaLecturas(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	err := store.Seed(
		[]entity.Warehouse{{ID: "W1", Name: "Principal"}},
		[]entity.Product{{ID: "P1", Name: "Acetaminofén"}},
		[]entity.Variant{{ID: "V1", ProductID: "P1", Name: "Caja x 10"}},
	)
	require.NoError(t, err)

	wh, err := store.Warehouses().GetByID(ctx, "W1")
	require.NoError(t, err)
	require.NotNil(t, wh)
	v, err := store.Catalog().GetVariant(ctx, "V1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "P1", v.ProductID)

	err = store.Seed(nil, nil, []entity.Variant{{ID: "V2", ProductID: "NOPE"}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
