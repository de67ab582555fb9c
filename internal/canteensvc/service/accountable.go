package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// accountableParty is whoever answers for a card's spending: the
// guardians of a dependent student, or a staff member for themselves.
// It owns the recipient set and the wording of every notice, so the
// scan engine never branches on a role string.
type accountableParty interface {
	Recipients() []*models.User
	PurchaseNotice(item *models.CanteenItem, balance decimal.Decimal) (title, body string)
	PenaltyNotice(item *models.CanteenItem, surcharge, balance decimal.Decimal, count, threshold int) (title, body string)
	BlockNotice(balance decimal.Decimal) (title, body string)
	RechargeNotice(amount, balance decimal.Decimal) (title, body string)
}

// accountableFor picks the variant from the holder's role. Students
// are dependents; staff answer for themselves. A student with no
// linked guardian gets no notices, which mirrors how the school
// operates (guardian linkage is mandatory at enrollment).
func accountableFor(holder *models.User, guardians []*models.User) accountableParty {
	if holder.Role == models.RoleStudent {
		return &dependent{holder: holder, guardians: guardians}
	}
	return &selfAccountable{holder: holder}
}

// dependent is a cardholder whose guardians are notified.
type dependent struct {
	holder    *models.User
	guardians []*models.User
}

func (d *dependent) Recipients() []*models.User { return d.guardians }

func (d *dependent) PurchaseNotice(item *models.CanteenItem, balance decimal.Decimal) (string, string) {
	title := "Transaction Report"
	body := fmt.Sprintf("Your child %s purchased %s for %s Tsh. The available balance is %s Tsh.",
		d.holder.FirstName, item.Name, item.Price.StringFixed(2), balance.StringFixed(2))
	return title, body
}

func (d *dependent) PenaltyNotice(item *models.CanteenItem, surcharge, balance decimal.Decimal, count, threshold int) (string, string) {
	title := "WARNING: Transaction Penalty"
	body := fmt.Sprintf("Your child %s purchased %s for %s Tsh with a penalty of -%s Tsh. Available balance is %s Tsh. "+
		"Warning: %d/%d penalties before your child's card is blocked. Please recharge to avoid further penalties.",
		d.holder.FirstName, item.Name, item.Price.StringFixed(2), surcharge.StringFixed(2),
		balance.StringFixed(2), count, threshold)
	return title, body
}

func (d *dependent) BlockNotice(balance decimal.Decimal) (string, string) {
	title := fmt.Sprintf("%s's Card Blocked", d.holder.FirstName)
	body := fmt.Sprintf("Your child %s will not get meals because insufficient balance exceeded the allowed limit. "+
		"Please recharge for your child to get a meal. Available balance is %s Tsh.",
		d.holder.FirstName, balance.StringFixed(2))
	return title, body
}

func (d *dependent) RechargeNotice(amount, balance decimal.Decimal) (string, string) {
	title := "Deposit Processed"
	body := fmt.Sprintf("A deposit of %s Tsh was credited to %s's card. The available balance is %s Tsh.",
		amount.StringFixed(2), d.holder.FirstName, balance.StringFixed(2))
	return title, body
}

// selfAccountable is a cardholder who is notified directly.
type selfAccountable struct {
	holder *models.User
}

func (s *selfAccountable) Recipients() []*models.User { return []*models.User{s.holder} }

func (s *selfAccountable) PurchaseNotice(item *models.CanteenItem, balance decimal.Decimal) (string, string) {
	title := "Transaction Report"
	body := fmt.Sprintf("You purchased %s for %s Tsh. The available balance is %s Tsh. "+
		"If this was not you contact support immediately.",
		item.Name, item.Price.StringFixed(2), balance.StringFixed(2))
	return title, body
}

func (s *selfAccountable) PenaltyNotice(item *models.CanteenItem, surcharge, balance decimal.Decimal, count, threshold int) (string, string) {
	title := "WARNING: Transaction Penalty"
	body := fmt.Sprintf("You purchased %s for %s Tsh with a penalty of -%s Tsh. Available balance is %s Tsh. "+
		"Warning: %d/%d penalties before your card is blocked. Please recharge to avoid further penalties.",
		item.Name, item.Price.StringFixed(2), surcharge.StringFixed(2), balance.StringFixed(2), count, threshold)
	return title, body
}

func (s *selfAccountable) BlockNotice(balance decimal.Decimal) (string, string) {
	title := "Your Card Blocked"
	body := fmt.Sprintf("Your card is blocked after repeated insufficient balance. "+
		"Please recharge your account to unblock. Available balance is %s Tsh.", balance.StringFixed(2))
	return title, body
}

func (s *selfAccountable) RechargeNotice(amount, balance decimal.Decimal) (string, string) {
	title := "Deposit Processed"
	body := fmt.Sprintf("A deposit of %s Tsh was credited to your card. The available balance is %s Tsh.",
		amount.StringFixed(2), balance.StringFixed(2))
	return title, body
}
