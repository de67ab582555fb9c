package service

import (
	"github.com/shopspring/decimal"

	"github.com/smms/canteen-services/internal/canteensvc/models"
)

// ChargeOutcome is the result of applying an item price to a card.
type ChargeOutcome string

const (
	OutcomeSuccessful ChargeOutcome = "successful"
	OutcomePenalty    ChargeOutcome = "penalty"
)

// TxStatus maps the outcome to the transaction status it is recorded
// under.
func (o ChargeOutcome) TxStatus() string {
	if o == OutcomePenalty {
		return models.TxPenalty
	}
	return models.TxSuccessful
}

// Ledger owns the balance and penalty rules for a card. Only the scan
// and deposit units call into it; nothing else mutates card money.
type Ledger struct {
	Surcharge      decimal.Decimal
	BlockThreshold int
}

func NewLedger(surcharge decimal.Decimal, blockThreshold int) *Ledger {
	return &Ledger{Surcharge: surcharge, BlockThreshold: blockThreshold}
}

// ApplyCharge debits price from the card. If the balance does not
// cover the price the meal is still allowed: the card is debited
// price plus the penalty surcharge and the insufficiency counter goes
// up by one. The balance has no floor, debt stays visible as a
// negative balance.
func (l *Ledger) ApplyCharge(card *models.Card, price decimal.Decimal) ChargeOutcome {
	if card.Balance.GreaterThanOrEqual(price) {
		card.Balance = card.Balance.Sub(price)
		return OutcomeSuccessful
	}

	card.Balance = card.Balance.Sub(price.Add(l.Surcharge))
	card.InsufficientCount++
	return OutcomePenalty
}

// ChargeAmount is the total debited for a scan with the given outcome.
func (l *Ledger) ChargeAmount(price decimal.Decimal, outcome ChargeOutcome) decimal.Decimal {
	if outcome == OutcomePenalty {
		return price.Add(l.Surcharge)
	}
	return price
}

// Credit adds a deposit amount to the card. The insufficiency counter
// is left alone; recharging does not forgive past penalties.
func (l *Ledger) Credit(card *models.Card, amount decimal.Decimal) {
	card.Balance = card.Balance.Add(amount)
}

// Blocked reports whether the card has hit the penalty threshold.
// A blocked card must be rejected before any charge is applied.
func (l *Ledger) Blocked(card *models.Card) bool {
	return card.InsufficientCount >= l.BlockThreshold
}
