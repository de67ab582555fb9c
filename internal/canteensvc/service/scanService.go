package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

// ScanRequest is one card presented at the operator terminal.
type ScanRequest struct {
	SessionID  string `json:"session_id"`
	CardNumber string `json:"card_number"`
	ItemID     string `json:"item_id"`
}

// NotifyPublisher wakes the dispatcher after new pending notifications
// are committed. Delivery is somebody else's job; a publish failure
// never affects the scan result.
type NotifyPublisher interface {
	NotificationsCreated(ids []string, source string)
}

// ScanService is the scan transaction engine. Each accepted scan
// debits the card, appends the audit row, records the transaction and
// queues notifications, all in one unit of work with the card row
// locked. Any validation failure leaves the store untouched.
type ScanService struct {
	store  store.Store
	ledger *Ledger
	notify NotifyPublisher // may be nil
}

func NewScanService(st store.Store, ledger *Ledger, notify NotifyPublisher) *ScanService {
	return &ScanService{store: st, ledger: ledger, notify: notify}
}

// Scan validates and applies one card scan. Validation order is part
// of the contract: role, session, card, item, duplicate, blocked;
// the first failure wins.
func (s *ScanService) Scan(ctx context.Context, actor Actor, req ScanRequest) (*models.ScannedData, error) {
	if actor.Role != models.RoleOperator {
		return nil, ErrOperatorOnly
	}

	var (
		result    *models.ScannedData
		notifyIds []string
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx store.ScanTx) error {
		session, err := tx.SessionByID(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if session == nil || session.Status != models.SessionActive {
			return ErrSessionNotFound
		}

		card, err := tx.CardByNumberForUpdate(ctx, req.CardNumber)
		if err != nil {
			return err
		}
		if card == nil {
			return ErrCardNotFound
		}

		item, err := tx.ItemByID(ctx, req.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return ErrItemNotFound
		}

		holder, err := tx.UserByID(ctx, card.HolderID)
		if err != nil {
			return err
		}
		if holder == nil {
			return fmt.Errorf("card %s has no holder record", card.CardNumber)
		}

		exists, err := tx.PurchaseExists(ctx, session.ID, card.HolderID, card.ID, item.ID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicatePurchase
		}

		// A blocked card is refused before any charge: no debit, no
		// audit row, no transaction.
		if s.ledger.Blocked(card) {
			return &BlockedCardError{
				CardNumber: card.CardNumber,
				Balance:    card.Balance,
				Count:      card.InsufficientCount,
			}
		}

		outcome := s.ledger.ApplyCharge(card, item.Price)
		if err := tx.UpdateCard(ctx, card); err != nil {
			return err
		}

		now := time.Now().UTC()
		scan := &models.ScannedData{
			ID:        uuid.NewString(),
			SessionID: session.ID,
			HolderID:  card.HolderID,
			CardID:    card.ID,
			ItemID:    item.ID,
			ScannedAt: now,
		}
		if err := tx.InsertScan(ctx, scan); err != nil {
			return err
		}

		txRecord := &models.Transaction{
			ID:        uuid.NewString(),
			HolderID:  card.HolderID,
			CardID:    card.ID,
			ItemID:    item.ID,
			Amount:    s.ledger.ChargeAmount(item.Price, outcome),
			Status:    outcome.TxStatus(),
			CreatedAt: now,
		}
		if err := tx.InsertTransaction(ctx, txRecord); err != nil {
			return err
		}

		guardians, err := tx.Guardians(ctx, card.HolderID)
		if err != nil {
			return err
		}
		party := accountableFor(holder, guardians)

		var title, body string
		switch {
		case outcome == OutcomeSuccessful:
			title, body = party.PurchaseNotice(item, card.Balance)
		case s.ledger.Blocked(card):
			// This penalty reached the threshold; warn that the card
			// is now blocked rather than counting down.
			title, body = party.BlockNotice(card.Balance)
		default:
			title, body = party.PenaltyNotice(item, s.ledger.Surcharge, card.Balance,
				card.InsufficientCount, s.ledger.BlockThreshold)
		}

		for _, recipient := range party.Recipients() {
			n := &models.Notification{
				ID:            uuid.NewString(),
				RecipientID:   recipient.ID,
				TransactionID: txRecord.ID,
				Title:         title,
				Message:       body,
				Status:        models.NotifyPending,
				Type:          models.NotifyTypeTransaction,
				CreatedAt:     now,
			}
			if err := tx.InsertNotification(ctx, n); err != nil {
				return err
			}
			notifyIds = append(notifyIds, n.ID)
		}

		result = scan
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Infof("scan accepted: session %s card %s item %s", req.SessionID, req.CardNumber, req.ItemID)

	if s.notify != nil && len(notifyIds) > 0 {
		s.notify.NotificationsCreated(notifyIds, "scan")
	}
	return result, nil
}
