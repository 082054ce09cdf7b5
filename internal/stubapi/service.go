package stubapi

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/gatepass/internal/gatepass"
	"github.com/frahmantamala/gatepass/internal/session"
)

type LoginResponse struct {
	Access   string       `json:"access"`
	Refresh  string       `json:"refresh"`
	UserType session.Role `json:"user_type"`
}

type RefreshResponse struct {
	Access   string       `json:"access"`
	UserType session.Role `json:"user_type"`
}

// Service holds the API's rules: who sees which passes and which status
// changes each role may make.
type Service struct {
	repo       *Repository
	tokens     *TokenIssuer
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

func NewService(repo *Repository, tokens *TokenIssuer, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *Service) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginResponse{}, ErrInvalidCredentials
	}

	u, err := s.repo.UserByUsername(ctx, username)
	if err != nil {
		return LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return LoginResponse{}, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return LoginResponse{}, err
	}
	refresh, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{Access: access, Refresh: refresh, UserType: u.UserType}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (RefreshResponse, error) {
	claims, err := s.validRefresh(ctx, refreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}

	u, err := s.repo.UserByID(ctx, claims.UserID)
	if err != nil {
		return RefreshResponse{}, err
	}
	access, err := s.tokens.IssueAccess(u)
	if err != nil {
		return RefreshResponse{}, err
	}
	return RefreshResponse{Access: access, UserType: u.UserType}, nil
}

// Logout blacklists the refresh token so it can no longer be exchanged.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.validRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	return s.repo.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *Service) validRefresh(ctx context.Context, refreshToken string) (*Claims, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	revoked, err := s.repo.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Authenticate resolves an access token to its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return User{}, err
	}
	return s.repo.UserByID(ctx, claims.UserID)
}

// Dashboard groups the passes visible to u: every pass for an SSE, only
// their own for a workman.
func (s *Service) Dashboard(ctx context.Context, u User) (gatepass.Snapshot, error) {
	var owner *int64
	if u.UserType != session.RoleSSE {
		owner = &u.ID
	}

	records, err := s.repo.Passes(ctx, owner)
	if err != nil {
		return gatepass.Snapshot{}, err
	}

	snap := gatepass.Snapshot{
		Pending:  []gatepass.GatePass{},
		Approved: []gatepass.GatePass{},
		Rejected: []gatepass.GatePass{},
	}
	for _, rec := range records {
		gp := rec.toGatePass()
		switch rec.ApprovalStatus {
		case gatepass.StatusPending:
			snap.Pending = append(snap.Pending, gp)
		case gatepass.StatusApproved:
			snap.Approved = append(snap.Approved, gp)
		case gatepass.StatusRejected:
			snap.Rejected = append(snap.Rejected, gp)
		}
	}
	return snap, nil
}

func (s *Service) Create(ctx context.Context, u User, form gatepass.FormDTO) (gatepass.GatePass, error) {
	if u.UserType != session.RoleWorkman {
		return gatepass.GatePass{}, ErrWrongRole
	}
	if err := form.Validate(); err != nil {
		return gatepass.GatePass{}, err
	}

	rec := GatePassRecord{
		WorkmanID:      u.ID,
		TimeOut:        form.TimeOut,
		TimeIn:         form.TimeIn,
		Purpose:        form.Purpose,
		ApprovalStatus: gatepass.StatusPending,
	}
	if err := s.repo.CreatePass(ctx, &rec); err != nil {
		return gatepass.GatePass{}, err
	}
	return s.reload(ctx, rec.ID)
}

// Update resubmits the owner's pending or rejected pass as pending again.
func (s *Service) Update(ctx context.Context, u User, id int64, form gatepass.FormDTO) (gatepass.GatePass, error) {
	if err := form.Validate(); err != nil {
		return gatepass.GatePass{}, err
	}

	rec, err := s.repo.Pass(ctx, id)
	if err != nil {
		return gatepass.GatePass{}, err
	}
	if rec.WorkmanID != u.ID {
		return gatepass.GatePass{}, ErrNotOwner
	}
	next, ok := rec.ApprovalStatus.Next(gatepass.ActionResubmit)
	if !ok {
		return gatepass.GatePass{}, ErrInvalidStatus
	}

	rec.TimeOut = form.TimeOut
	rec.TimeIn = form.TimeIn
	rec.Purpose = form.Purpose
	rec.ApprovalStatus = next
	rec.RejectionReason = nil
	if err := s.repo.SavePass(ctx, &rec); err != nil {
		return gatepass.GatePass{}, err
	}
	return s.reload(ctx, id)
}

// Decide applies an SSE's approve or reject to a pending pass.
func (s *Service) Decide(ctx context.Context, u User, id int64, action gatepass.Action, reason string) (gatepass.GatePass, error) {
	if u.UserType != session.RoleSSE {
		return gatepass.GatePass{}, ErrWrongRole
	}
	if action != gatepass.ActionApprove && action != gatepass.ActionReject {
		return gatepass.GatePass{}, ErrUnknownAction
	}
	if action == gatepass.ActionReject && strings.TrimSpace(reason) == "" {
		return gatepass.GatePass{}, ErrReasonRequired
	}

	rec, err := s.repo.Pass(ctx, id)
	if err != nil {
		return gatepass.GatePass{}, err
	}
	next, ok := rec.ApprovalStatus.Next(action)
	if !ok {
		return gatepass.GatePass{}, ErrInvalidStatus
	}

	rec.ApprovalStatus = next
	if action == gatepass.ActionApprove {
		at := s.now()
		rec.ApprovedByID = &u.ID
		rec.ApprovedAt = &at
		rec.RejectionReason = nil
	} else {
		rec.RejectionReason = &reason
	}
	if err := s.repo.SavePass(ctx, &rec); err != nil {
		return gatepass.GatePass{}, err
	}

	s.logger.Info("gate pass decided", "gatepass_id", id, "action", action, "by", u.Username)
	return s.reload(ctx, id)
}

// Approved returns an approved pass visible to u, for PDF rendering.
func (s *Service) Approved(ctx context.Context, u User, id int64) (gatepass.GatePass, error) {
	rec, err := s.repo.Pass(ctx, id)
	if err != nil {
		return gatepass.GatePass{}, err
	}
	if u.UserType != session.RoleSSE && rec.WorkmanID != u.ID {
		return gatepass.GatePass{}, ErrNotFound
	}
	if rec.ApprovalStatus != gatepass.StatusApproved {
		return gatepass.GatePass{}, ErrInvalidStatus
	}
	return rec.toGatePass(), nil
}

func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) reload(ctx context.Context, id int64) (gatepass.GatePass, error) {
	rec, err := s.repo.Pass(ctx, id)
	if err != nil {
		return gatepass.GatePass{}, err
	}
	return rec.toGatePass(), nil
}
