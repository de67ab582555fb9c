package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

// DepositRequest is a bank recharge keyed by the card's control
// number. BankRef comes from the bank slip and makes retries safe.
type DepositRequest struct {
	ControlNumber string          `json:"control_number"`
	Amount        decimal.Decimal `json:"amount"`
	BankRef       string          `json:"bank_ref"`
}

// DepositService credits bank deposits to cards. Recharging never
// resets the insufficiency counter; a blocked card stays blocked.
type DepositService struct {
	store  store.Store
	ledger *Ledger
	notify NotifyPublisher // may be nil
}

func NewDepositService(st store.Store, ledger *Ledger, notify NotifyPublisher) *DepositService {
	return &DepositService{store: st, ledger: ledger, notify: notify}
}

func (s *DepositService) Process(ctx context.Context, actor Actor, req DepositRequest) (*models.Deposit, error) {
	if actor.Role != models.RoleAdmin {
		return nil, ErrAdminOnly
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidInput
	}

	var (
		deposit   *models.Deposit
		notifyIds []string
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ScanTx) error {
		exists, err := tx.DepositRefExists(ctx, req.BankRef)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateDeposit
		}

		card, err := tx.CardByControlNumberForUpdate(ctx, req.ControlNumber)
		if err != nil {
			return err
		}
		if card == nil {
			return ErrCardNotFound
		}

		holder, err := tx.UserByID(ctx, card.HolderID)
		if err != nil {
			return err
		}
		if holder == nil {
			return ErrCardNotFound
		}

		s.ledger.Credit(card, req.Amount)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}

		now := time.Now().UTC()
		dep := &models.Deposit{
			ID:            uuid.NewString(),
			ControlNumber: card.ControlNumber,
			Amount:        req.Amount,
			BankRef:       req.BankRef,
			Status:        models.DepositProcessed,
			ProcessedAt:   &now,
			CreatedAt:     now,
		}
		if err := tx.InsertDeposit(ctx, dep); err != nil {
			return err
		}

		guardians, err := tx.Guardians(ctx, card.HolderID)
		if err != nil {
			return err
		}
		party := accountableFor(holder, guardians)
		title, body := party.RechargeNotice(req.Amount, card.Balance)

		for _, recipient := range party.Recipients() {
			n := &models.Notification{
				ID:          uuid.NewString(),
				RecipientID: recipient.ID,
				Title:       title,
				Message:     body,
				Status:      models.NotifyPending,
				Type:        models.NotifyTypeTransaction,
				CreatedAt:   now,
			}
			if err := tx.InsertNotification(ctx, n); err != nil {
				return err
			}
			notifyIds = append(notifyIds, n.ID)
		}

		deposit = dep
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("deposit processed: control %s ref %s amount %s",
		req.ControlNumber, req.BankRef, req.Amount.StringFixed(2))

	if s.notify != nil && len(notifyIds) > 0 {
		s.notify.NotificationsCreated(notifyIds, "deposit")
	}
	return deposit, nil
}
