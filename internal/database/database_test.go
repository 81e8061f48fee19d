package database_test

import (
	"fmt"
	"testing"

	"github.com/Murega14/agrilink/internal/config"
	"github.com/Murega14/agrilink/internal/database"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := database.Connect(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMigrateAndSeed(t *testing.T) {
	db, err := database.Connect(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	defer database.Close(db)

	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	// Seeding twice is a no-op.
	require.NoError(t, database.Seed(db))

	accounts := repositories.NewGORMAccountRepository(db)
	farmer, err := accounts.GetByEmail(models.RoleFarmer, "farmer@agrilink.test")
	require.NoError(t, err)
	_, err = accounts.GetByEmail(models.RoleBuyer, "buyer@agrilink.test")
	require.NoError(t, err)

	products, total, err := repositories.NewGORMProductRepository(db).List(repositories.ProductFilter{FarmerID: farmer.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, p := range products {
		if p.AmountAvailable == 0 {
			assert.Equal(t, models.ProductOutOfStock, p.Status)
		}
	}
}
