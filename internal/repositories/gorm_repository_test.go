package repositories_test

import (
	"fmt"
	"testing"

	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createFarmer(t *testing.T, accounts *repositories.GORMAccountRepository, email, phone string) *models.Account {
	t.Helper()
	farmer := &models.Account{
		FirstName:    "Grace",
		LastName:     "Wambui",
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: "hash",
		Role:         models.RoleFarmer,
	}
	require.NoError(t, accounts.Create(farmer))
	return farmer
}

func createProduct(t *testing.T, products *repositories.GORMProductRepository, farmerID, name string, amount int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:            name,
		Description:     name,
		PricePerUnit:    decimal.NewFromInt(10),
		AmountAvailable: amount,
		Category:        "Grains",
		FarmerID:        farmerID,
	}
	p.SyncStatus()
	require.NoError(t, products.Create(p))
	return p
}

func TestDecrementStockIsConditional(t *testing.T) {
	db := openDB(t)
	accounts := repositories.NewGORMAccountRepository(db)
	products := repositories.NewGORMProductRepository(db)
	farmer := createFarmer(t, accounts, "grace@example.com", "0711111111")
	maize := createProduct(t, products, farmer.ID, "Maize", 3)

	err := products.DecrementStock(maize.ID, 4)
	assert.ErrorIs(t, err, repositories.ErrInsufficientStock)

	require.NoError(t, products.DecrementStock(maize.ID, 3))
	got, err := products.GetByID(maize.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AmountAvailable)
	assert.Equal(t, models.ProductOutOfStock, got.Status)
	assert.Equal(t, "Grace Wambui", got.SellerName())

	require.NoError(t, products.RestoreStock(maize.ID, 2))
	got, err = products.GetByID(maize.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AmountAvailable)
	assert.Equal(t, models.ProductAvailable, got.Status)

	assert.ErrorIs(t, products.RestoreStock("missing", 1), repositories.ErrNotFound)
}

func TestListEscapesSearchAndSkipsDeleted(t *testing.T) {
	db := openDB(t)
	accounts := repositories.NewGORMAccountRepository(db)
	products := repositories.NewGORMProductRepository(db)
	farmer := createFarmer(t, accounts, "grace@example.com", "0711111111")

	createProduct(t, products, farmer.ID, "Maize 100%", 5)
	createProduct(t, products, farmer.ID, "Maize flour", 5)
	gone := createProduct(t, products, farmer.ID, "Maize seed", 5)
	require.NoError(t, products.Delete(gone.ID))
	assert.ErrorIs(t, products.Delete(gone.ID), repositories.ErrNotFound)

	list, total, err := products.List(repositories.ProductFilter{Search: "MAIZE"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = products.List(repositories.ProductFilter{Search: "100%"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "Maize 100%", list[0].Name)

	list, total, err = products.List(repositories.ProductFilter{Category: "grain", Page: 2, PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)
}

func TestDeleteFarmerRemovesProducts(t *testing.T) {
	db := openDB(t)
	accounts := repositories.NewGORMAccountRepository(db)
	products := repositories.NewGORMProductRepository(db)
	farmer := createFarmer(t, accounts, "grace@example.com", "0711111111")
	other := createFarmer(t, accounts, "peter@example.com", "0722222222")
	createProduct(t, products, farmer.ID, "Maize", 5)
	kept := createProduct(t, products, other.ID, "Beans", 5)

	require.NoError(t, accounts.Delete(models.RoleFarmer, farmer.ID))

	_, total, err := products.List(repositories.ProductFilter{FarmerID: farmer.ID})
	require.NoError(t, err)
	assert.Zero(t, total)
	_, err = products.GetByID(kept.ID)
	assert.NoError(t, err)

	_, err = accounts.GetByID(models.RoleFarmer, farmer.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, accounts.Delete(models.RoleFarmer, farmer.ID), repositories.ErrNotFound)
}

func TestAccountUniqueness(t *testing.T) {
	db := openDB(t)
	accounts := repositories.NewGORMAccountRepository(db)
	farmer := createFarmer(t, accounts, "grace@example.com", "0711111111")

	exists, err := accounts.ExistsByEmailOrPhone(models.RoleFarmer, "other@example.com", "0711111111", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = accounts.ExistsByEmailOrPhone(models.RoleFarmer, "grace@example.com", "0711111111", farmer.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	// Roles are separate tables.
	exists, err = accounts.ExistsByEmailOrPhone(models.RoleBuyer, "grace@example.com", "0711111111", "")
	require.NoError(t, err)
	assert.False(t, exists)

	// The unique index still guards a create that skipped the check.
	err = accounts.Create(&models.Account{
		FirstName:    "Copy",
		LastName:     "Cat",
		Email:        "grace@example.com",
		PhoneNumber:  "0733333333",
		PasswordHash: "hash",
		Role:         models.RoleFarmer,
	})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	second := createFarmer(t, accounts, "peter@example.com", "0722222222")
	second.Email = "grace@example.com"
	assert.ErrorIs(t, accounts.Update(second), repositories.ErrDuplicate)

	got, err := accounts.GetByIdentifier(models.RoleFarmer, "0711111111")
	require.NoError(t, err)
	assert.Equal(t, farmer.ID, got.ID)
	assert.Equal(t, models.RoleFarmer, got.Role)
}
