package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of the seeded accounts.
const DemoPassword = "Demo#2024"

// Seed inserts a demo farmer with a few products and a demo buyer. Accounts
// that already exist are left alone.
func Seed(db *gorm.DB) error {
	accounts := repositories.NewGORMAccountRepository(db)
	products := repositories.NewGORMProductRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash demo password: %w", err)
	}

	farmer, created, err := seedAccount(accounts, &models.Account{
		FirstName:    "Wanjiru",
		LastName:     "Kamau",
		PhoneNumber:  "0700000001",
		Email:        "farmer@agrilink.test",
		PasswordHash: string(hash),
		Role:         models.RoleFarmer,
	})
	if err != nil {
		return err
	}
	if created {
		catalog := []models.Product{
			{Name: "Maize", Description: "Dry white maize, 90kg bag", PricePerUnit: decimal.NewFromInt(3500), AmountAvailable: 40, Category: "Grains"},
			{Name: "Sukuma Wiki", Description: "Fresh kale, per bunch", PricePerUnit: decimal.NewFromInt(20), AmountAvailable: 200, Category: "Vegetables"},
			{Name: "Avocado", Description: "Hass avocado, per kg", PricePerUnit: decimal.RequireFromString("120.50"), AmountAvailable: 0, Category: "Fruits"},
		}
		for i := range catalog {
			catalog[i].FarmerID = farmer.ID
			catalog[i].SyncStatus()
			if err := products.Create(&catalog[i]); err != nil {
				return err
			}
			log.Printf("Seeded product: %s (ID: %s)", catalog[i].Name, catalog[i].ID)
		}
	}

	if _, _, err := seedAccount(accounts, &models.Account{
		FirstName:    "Otieno",
		LastName:     "Odhiambo",
		PhoneNumber:  "0700000002",
		Email:        "buyer@agrilink.test",
		PasswordHash: string(hash),
		Role:         models.RoleBuyer,
	}); err != nil {
		return err
	}
	return nil
}

func seedAccount(repo repositories.AccountRepository, account *models.Account) (*models.Account, bool, error) {
	existing, err := repo.GetByEmail(account.Role, account.Email)
	if err == nil {
		log.Printf("%s %s already exists. Seeding skipped.", account.Role, account.Email)
		return existing, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, err
	}
	if err := repo.Create(account); err != nil {
		return nil, false, err
	}
	log.Printf("Seeded %s: %s", account.Role, account.Email)
	return account, true, nil
}
