package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smms/canteen-services/internal/canteensvc/models"
	"github.com/smms/canteen-services/internal/canteensvc/store"
)

// Actor is the already-authenticated caller. Authentication lives at
// the edge; role checks live here.
type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// SessionService opens and closes scan sessions. An operator owns at
// most one active session at a time.
type SessionService struct {
	store       store.Store
	operatorCap int
	adminCap    int
	scanCap     int
}

func NewSessionService(st store.Store, operatorCap, adminCap, scanCap int) *SessionService {
	return &SessionService{store: st, operatorCap: operatorCap, adminCap: adminCap, scanCap: scanCap}
}

// Start opens a new active session for the operator.
func (s *SessionService) Start(ctx context.Context, actor Actor, sessionType string) (*models.ScanSession, error) {
	if actor.Role != models.RoleOperator {
		return nil, ErrOperatorOnly
	}
	if !models.ValidSessionType(sessionType) {
		return nil, fmt.Errorf("%w: unknown session type %q", ErrInvalidInput, sessionType)
	}

	now := time.Now().UTC()
	session := &models.ScanSession{
		ID:         uuid.NewString(),
		OperatorID: actor.ID,
		Type:       sessionType,
		Status:     models.SessionActive,
		StartAt:    now,
		UpdatedAt:  now,
	}

	created, err := s.store.CreateSessionIfNoneActive(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	if !created {
		return nil, ErrSessionConflict
	}
	return session, nil
}

// End completes the operator's active session.
func (s *SessionService) End(ctx context.Context, actor Actor, sessionID string) (*models.ScanSession, error) {
	if actor.Role != models.RoleOperator {
		return nil, ErrOperatorOnly
	}

	session, err := s.store.CompleteSession(ctx, sessionID, actor.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Active returns the operator's current active session.
func (s *SessionService) Active(ctx context.Context, actor Actor) (*models.ScanSession, error) {
	session, err := s.store.ActiveSessionForOperator(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// List returns sessions ordered by (status, start desc). Operators
// see their own, admins see all; each scope has its own result cap.
func (s *SessionService) List(ctx context.Context, actor Actor) ([]*models.ScanSession, error) {
	switch actor.Role {
	case models.RoleOperator:
		return s.store.SessionsForOperator(ctx, actor.ID, s.operatorCap)
	case models.RoleAdmin:
		return s.store.AllSessions(ctx, s.adminCap)
	default:
		return nil, ErrForbidden
	}
}

// Scans returns the scan log of a session, newest first.
func (s *SessionService) Scans(ctx context.Context, actor Actor, sessionID string) ([]*models.ScannedData, error) {
	if actor.Role != models.RoleOperator && actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	return s.store.ScansForSession(ctx, sessionID, s.scanCap)
}
