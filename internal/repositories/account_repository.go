package repositories

import "github.com/Murega14/agrilink/internal/models"

// AccountRepository defines data access for farmer and buyer accounts.
// Every method is scoped to one role's table.
type AccountRepository interface {
	Create(account *models.Account) error
	GetByID(role models.Role, id string) (*models.Account, error)
	GetByIdentifier(role models.Role, identifier string) (*models.Account, error)
	GetByEmail(role models.Role, email string) (*models.Account, error)
	ExistsByEmailOrPhone(role models.Role, email, phone, excludeID string) (bool, error)
	Update(account *models.Account) error
	Delete(role models.Role, id string) error
}
