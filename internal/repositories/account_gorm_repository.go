package repositories

import (
	"errors"
	"fmt"

	"github.com/Murega14/agrilink/internal/models"

	"gorm.io/gorm"
)

// GORMAccountRepository is a GORM implementation of AccountRepository.
// Farmers and buyers live in separate tables with identical columns.
type GORMAccountRepository struct {
	db *gorm.DB
}

// NewGORMAccountRepository creates a new instance of GORMAccountRepository.
func NewGORMAccountRepository(db *gorm.DB) *GORMAccountRepository {
	return &GORMAccountRepository{
		db: db,
	}
}

func (r *GORMAccountRepository) table(role models.Role) *gorm.DB {
	return r.db.Table(models.TableFor(role))
}

// Create inserts a new account into its role's table.
func (r *GORMAccountRepository) Create(account *models.Account) error {
	if err := r.table(account.Role).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s email or phone number: %w", account.Role, ErrDuplicate)
		}
		return fmt.Errorf("failed to create %s: %w", account.Role, err)
	}
	return nil
}

func (r *GORMAccountRepository) first(role models.Role, query string, args ...interface{}) (*models.Account, error) {
	var account models.Account
	if err := r.table(role).Where(query, args...).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", role, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", role, err)
	}
	account.Role = role
	return &account, nil
}

// GetByID retrieves an account by its ID.
func (r *GORMAccountRepository) GetByID(role models.Role, id string) (*models.Account, error) {
	return r.first(role, "id = ?", id)
}

// GetByIdentifier retrieves an account by e-mail or phone number.
func (r *GORMAccountRepository) GetByIdentifier(role models.Role, identifier string) (*models.Account, error) {
	return r.first(role, "email = ? OR phone_number = ?", identifier, identifier)
}

// GetByEmail retrieves an account by e-mail.
func (r *GORMAccountRepository) GetByEmail(role models.Role, email string) (*models.Account, error) {
	return r.first(role, "email = ?", email)
}

// ExistsByEmailOrPhone reports whether another account of the role already
// uses the e-mail or phone number. excludeID skips the caller's own row.
func (r *GORMAccountRepository) ExistsByEmailOrPhone(role models.Role, email, phone, excludeID string) (bool, error) {
	var count int64
	q := r.table(role).Where("(email = ? OR phone_number = ?)", email, phone)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check %s uniqueness: %w", role, err)
	}
	return count > 0, nil
}

// Update saves the mutable account fields.
func (r *GORMAccountRepository) Update(account *models.Account) error {
	res := r.table(account.Role).Where("id = ?", account.ID).Updates(map[string]interface{}{
		"first_name":    account.FirstName,
		"last_name":     account.LastName,
		"email":         account.Email,
		"phone_number":  account.PhoneNumber,
		"password_hash": account.PasswordHash,
	})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%s email or phone number: %w", account.Role, ErrDuplicate)
		}
		return fmt.Errorf("failed to update %s: %w", account.Role, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", account.Role, account.ID, ErrNotFound)
	}
	return nil
}

// Delete removes an account. A farmer's products are removed in the same
// transaction.
func (r *GORMAccountRepository) Delete(role models.Role, id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if role == models.RoleFarmer {
			if err := tx.Where("farmer_id = ?", id).Delete(&models.Product{}).Error; err != nil {
				return fmt.Errorf("failed to delete products of farmer %s: %w", id, err)
			}
		}
		res := tx.Table(models.TableFor(role)).Where("id = ?", id).Delete(&models.Account{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete %s: %w", role, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%s %s: %w", role, id, ErrNotFound)
		}
		return nil
	})
}
