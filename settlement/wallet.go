package settlement

import (
	"laundry-api/apperr"
	"laundry-api/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// creditWallet adds amount to the customer's balance as a single SQL delta.
func creditWallet(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("customer not found")
	}
	return nil
}

// debitWallet subtracts amount only if the balance covers it, so the
// balance never goes negative even when debits race.
func debitWallet(tx *gorm.DB, userID uint, amount decimal.Decimal) error {
	res := tx.Model(&models.User{}).
		Where("id = ? AND wallet_balance >= ?", userID, amount).
		Update("wallet_balance", gorm.Expr("wallet_balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.InsufficientWallet()
	}
	return nil
}

func walletBalance(tx *gorm.DB, userID uint) (decimal.Decimal, error) {
	var u models.User
	if err := tx.Select("id", "wallet_balance").First(&u, userID).Error; err != nil {
		return decimal.Zero, err
	}
	return u.WalletBalance, nil
}
