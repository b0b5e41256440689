package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/walletbridge/link-server-go/internal/audit"
	"github.com/walletbridge/link-server-go/internal/challenge"
	apperrors "github.com/walletbridge/link-server-go/internal/errors"
	"github.com/walletbridge/link-server-go/internal/model"
	"github.com/walletbridge/link-server-go/internal/notify"
	"github.com/walletbridge/link-server-go/internal/repository"
	"github.com/walletbridge/link-server-go/internal/sigverify"
	"github.com/walletbridge/link-server-go/internal/token"
	"github.com/walletbridge/link-server-go/internal/util"
)

const defaultWalletType = "unknown"

type Options struct {
	ConnectBaseURL string
	CallbackURL    string
	ReturnToURL    string
	ConnectionTTL  time.Duration
	StoreTimeout   time.Duration
	// StrictCallbackLookup makes HandleCallback fail closed with
	// CONNECTION_NOT_FOUND when no pending record exists, instead of still
	// running token verification against the caller-claimed ids.
	StrictCallbackLookup bool
}

type CreateConnectionResult struct {
	ConnectionID string    `json:"connectionId"`
	BrowserURL   string    `json:"browserUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ExpiresIn    int       `json:"expiresIn"`
}

type CallbackPayload struct {
	ConnectionID  string `json:"connectionId"`
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType,omitempty"`
	PublicKey     string `json:"publicKey,omitempty"`
	UserID        int64  `json:"userId"`
	ChatID        int64  `json:"chatId"`
	Token         string `json:"token"`
	Signature     string `json:"signature"`
}

type CallbackResult struct {
	ConnectionID string        `json:"connectionId"`
	Wallet       *model.Wallet `json:"wallet"`
}

type WalletSummary struct {
	Address    string    `json:"address"`
	WalletType string    `json:"walletType"`
	LinkedAt   time.Time `json:"linkedAt"`
}

type StatusResult struct {
	State            model.LinkState `json:"state"`
	ConnectionID     string          `json:"connectionId,omitempty"`
	RemainingSeconds int             `json:"remainingSeconds,omitempty"`
	Wallet           *WalletSummary  `json:"wallet,omitempty"`
}

type ConnectService struct {
	connRepo   repository.ConnectionRepository
	walletRepo repository.WalletRepository
	codec      *token.Codec
	broker     *notify.Broker
	opts       Options
	now        func() time.Time
}

func NewConnectService(
	connRepo repository.ConnectionRepository,
	walletRepo repository.WalletRepository,
	codec *token.Codec,
	broker *notify.Broker,
	opts Options,
) *ConnectService {
	if opts.ConnectionTTL <= 0 {
		opts.ConnectionTTL = 300 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	return &ConnectService{
		connRepo:   connRepo,
		walletRepo: walletRepo,
		codec:      codec,
		broker:     broker,
		opts:       opts,
		now:        time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *ConnectService) WithNow(now func() time.Time) *ConnectService {
	s.now = now
	return s
}

// storeCtx bounds a store call. Timeouts surface as STORE_UNAVAILABLE, not as
// a protocol failure.
func (s *ConnectService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

func storeErr(err error) *apperrors.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.StoreUnavailable(err)
	}
	return apperrors.Database(err)
}

// CreateConnectionRequest starts a handshake for a user/chat pair. If an
// unexpired pending connection already exists for the user, its id is reused
// and a fresh browser URL is generated with the same expiry.
func (s *ConnectService) CreateConnectionRequest(ctx context.Context, userID, chatID int64) (*CreateConnectionResult, error) {
	if !util.IsPositiveID(userID) {
		return nil, apperrors.InvalidInput("userId", "must be a positive integer")
	}
	if !util.IsPositiveID(chatID) {
		return nil, apperrors.InvalidInput("chatId", "must be a positive integer")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	existing, err := s.connRepo.GetPendingByUser(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if existing != nil {
		browserURL, err := s.buildBrowserURL(existing)
		if err != nil {
			return nil, apperrors.Internal("failed to build connection URL").WithCause(err)
		}

		audit.Log(audit.Event{
			Type:         audit.EventConnectionReuse,
			UserID:       userID,
			ConnectionID: existing.ConnectionID,
		})

		return &CreateConnectionResult{
			ConnectionID: existing.ConnectionID,
			BrowserURL:   browserURL,
			ExpiresAt:    existing.ExpiresAt,
			ExpiresIn:    int(existing.ExpiresAt.Sub(s.now()).Seconds()),
		}, nil
	}

	connectionID := uuid.NewString()
	expiresAt := s.now().Add(s.opts.ConnectionTTL)

	conn, err := s.connRepo.CreatePending(sctx, model.CreateConnectionParams{
		ConnectionID: connectionID,
		UserID:       userID,
		ChatID:       chatID,
		ExpiresAt:    expiresAt,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	browserURL, err := s.buildBrowserURL(conn)
	if err != nil {
		return nil, apperrors.Internal("failed to build connection URL").WithCause(err)
	}

	log.Info().
		Str("connectionId", connectionID).
		Int64("userId", userID).
		Int64("chatId", chatID).
		Time("expiresAt", expiresAt).
		Msg("connection request created")

	audit.Log(audit.Event{
		Type:         audit.EventConnectionCreate,
		UserID:       userID,
		ConnectionID: connectionID,
	})

	return &CreateConnectionResult{
		ConnectionID: connectionID,
		BrowserURL:   browserURL,
		ExpiresAt:    expiresAt,
		ExpiresIn:    int(s.opts.ConnectionTTL.Seconds()),
	}, nil
}

func (s *ConnectService) buildBrowserURL(conn *model.Connection) (string, error) {
	tok, err := s.codec.Issue(conn.ConnectionID, conn.UserID, conn.ChatID, conn.ExpiresAt)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	msg := challenge.Render(conn.ConnectionID, conn.UserID, conn.ChatID, conn.ExpiresAt)

	params := url.Values{}
	params.Set("connectionId", conn.ConnectionID)
	params.Set("userId", strconv.FormatInt(conn.UserID, 10))
	params.Set("chatId", strconv.FormatInt(conn.ChatID, 10))
	params.Set("callback", s.opts.CallbackURL)
	params.Set("expiresAt", strconv.FormatInt(conn.ExpiresAt.Unix(), 10))
	params.Set("returnTo", s.opts.ReturnToURL)
	params.Set("challenge", base64.RawURLEncoding.EncodeToString([]byte(msg)))
	params.Set("connToken", tok)

	return s.opts.ConnectBaseURL + "?" + params.Encode(), nil
}

func validateCallbackPayload(p *CallbackPayload) *apperrors.AppError {
	switch {
	case p.ConnectionID == "":
		return apperrors.MissingRequired("connectionId")
	case p.WalletAddress == "":
		return apperrors.MissingRequired("walletAddress")
	case p.Token == "":
		return apperrors.MissingRequired("token")
	case p.Signature == "":
		return apperrors.MissingRequired("signature")
	case !util.IsPositiveID(p.UserID):
		return apperrors.InvalidInput("userId", "must be a positive integer")
	case !util.IsPositiveID(p.ChatID):
		return apperrors.InvalidInput("chatId", "must be a positive integer")
	}
	return nil
}

// HandleCallback finishes a handshake. Every verification step fails closed;
// the caller sees one tagged failure category per step, never a partial
// validity signal.
func (s *ConnectService) HandleCallback(ctx context.Context, payload *CallbackPayload) (*CallbackResult, error) {
	if err := validateCallbackPayload(payload); err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	conn, err := s.connRepo.GetPending(sctx, payload.ConnectionID)
	if err != nil {
		return nil, storeErr(err)
	}

	if conn == nil {
		// The pending view hides overdue and terminal records. Re-read the
		// raw record so a known connection gets a precise failure tag.
		existing, err := s.connRepo.GetByID(sctx, payload.ConnectionID)
		if err != nil {
			return nil, storeErr(err)
		}
		if existing != nil {
			if existing.Status != model.ConnectionStatusPending {
				return nil, statusError(existing.Status)
			}
			return nil, apperrors.ConnectionExpired()
		}
		if s.opts.StrictCallbackLookup {
			return nil, apperrors.ConnectionNotFound()
		}
	}

	// With the record truly absent (never existed, or lost with a volatile
	// store) the claimed ids still drive token verification so the caller
	// gets a meaningful failure instead of an ambiguous not-found.
	expectedUserID := payload.UserID
	expectedChatID := payload.ChatID
	if conn != nil {
		if conn.UserID != payload.UserID || conn.ChatID != payload.ChatID {
			audit.Log(audit.Event{
				Type:         audit.EventPayloadMismatch,
				UserID:       payload.UserID,
				ConnectionID: payload.ConnectionID,
			})
			return nil, apperrors.PayloadMismatch()
		}
		expectedUserID = conn.UserID
		expectedChatID = conn.ChatID
	}

	claims := s.codec.Verify(payload.Token, payload.ConnectionID, expectedUserID, expectedChatID)
	if claims == nil {
		audit.Log(audit.Event{
			Type:         audit.EventTokenFailure,
			UserID:       payload.UserID,
			ConnectionID: payload.ConnectionID,
		})
		return nil, apperrors.InvalidToken()
	}

	now := s.now()
	if conn != nil {
		if conn.Status != model.ConnectionStatusPending {
			return nil, statusError(conn.Status)
		}
		if now.After(conn.ExpiresAt) {
			return nil, apperrors.ConnectionExpired()
		}
	}

	if !sigverify.ValidAddress(payload.WalletAddress) {
		return nil, apperrors.InvalidWalletAddress()
	}

	// The record's expiry is authoritative for the challenge; the token's
	// embedded expiry covers the lenient absent-record path.
	challengeExpiry := claims.ExpiresAt()
	if conn != nil {
		challengeExpiry = conn.ExpiresAt
	}
	msg := challenge.Render(payload.ConnectionID, expectedUserID, expectedChatID, challengeExpiry)

	if !sigverify.Verify(payload.WalletAddress, payload.Signature, msg) {
		log.Warn().
			Str("connectionId", payload.ConnectionID).
			Int64("userId", payload.UserID).
			Msg("callback signature verification failed")
		audit.Log(audit.Event{
			Type:         audit.EventSignatureFailure,
			UserID:       payload.UserID,
			ConnectionID: payload.ConnectionID,
		})
		return nil, apperrors.InvalidSignature()
	}

	wallet, err := s.linkWallet(sctx, expectedUserID, payload.WalletAddress, payload.WalletType)
	if err != nil {
		return nil, err
	}

	completed, err := s.connRepo.Complete(sctx, payload.ConnectionID, payload.WalletAddress)
	if err != nil {
		return nil, storeErr(err)
	}
	if completed == nil {
		// Lost the race or the record vanished between checks: re-read to
		// tag the failure precisely.
		return nil, s.completionFailure(sctx, payload.ConnectionID)
	}

	log.Info().
		Str("connectionId", completed.ConnectionID).
		Int64("userId", completed.UserID).
		Str("walletAddress", payload.WalletAddress).
		Msg("connection completed")

	audit.Log(audit.Event{
		Type:         audit.EventConnectionComplete,
		UserID:       completed.UserID,
		ConnectionID: completed.ConnectionID,
	})

	s.publish(ctx, completed.UserID, notify.EventConnectionCompleted, map[string]any{
		"connectionId":  completed.ConnectionID,
		"walletAddress": payload.WalletAddress,
		"completedAt":   now.UTC().Format(time.RFC3339),
	})

	return &CallbackResult{
		ConnectionID: completed.ConnectionID,
		Wallet:       wallet,
	}, nil
}

func (s *ConnectService) linkWallet(ctx context.Context, userID int64, address, walletType string) (*model.Wallet, error) {
	if walletType == "" {
		walletType = defaultWalletType
	}

	existing, err := s.walletRepo.FindByUserAndAddress(ctx, userID, address)
	if err != nil {
		return nil, storeErr(err)
	}

	if existing != nil {
		wallet, err := s.walletRepo.Reactivate(ctx, existing.ID)
		if err != nil {
			return nil, storeErr(err)
		}
		audit.Log(audit.Event{Type: audit.EventWalletRelink, UserID: userID})
		return wallet, nil
	}

	count, err := s.walletRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	wallet, err := s.walletRepo.Create(ctx, model.CreateWalletParams{
		ID:         uuid.NewString(),
		UserID:     userID,
		Address:    address,
		WalletType: walletType,
		Active:     count == 0,
	})
	if err != nil {
		return nil, storeErr(err)
	}

	audit.Log(audit.Event{Type: audit.EventWalletLink, UserID: userID})
	return wallet, nil
}

func (s *ConnectService) completionFailure(ctx context.Context, connectionID string) *apperrors.AppError {
	conn, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return storeErr(err)
	}
	if conn == nil {
		return apperrors.ConnectionNotFound()
	}
	if conn.Status == model.ConnectionStatusPending {
		// Still pending but Complete refused: the expiry passed between the
		// actionability check and the transition.
		return apperrors.ConnectionExpired()
	}
	return statusError(conn.Status)
}

func statusError(status model.ConnectionStatus) *apperrors.AppError {
	switch status {
	case model.ConnectionStatusCompleted:
		return apperrors.ConnectionAlreadyUsed()
	case model.ConnectionStatusCancelled:
		return apperrors.ConnectionCancelled()
	default:
		return apperrors.ConnectionExpired()
	}
}

// CheckConnectionStatus reports where a user stands: a pending handshake with
// remaining time, a linked wallet, or nothing.
func (s *ConnectService) CheckConnectionStatus(ctx context.Context, userID int64) (*StatusResult, error) {
	if !util.IsPositiveID(userID) {
		return nil, apperrors.InvalidInput("userId", "must be a positive integer")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	pending, err := s.connRepo.GetPendingByUser(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if pending != nil {
		return &StatusResult{
			State:            model.LinkStatePending,
			ConnectionID:     pending.ConnectionID,
			RemainingSeconds: int(pending.ExpiresAt.Sub(s.now()).Seconds()),
		}, nil
	}

	wallet, err := s.walletRepo.FindActiveByUser(sctx, userID)
	if err != nil {
		return nil, storeErr(err)
	}

	if wallet == nil {
		wallets, err := s.walletRepo.ListByUser(sctx, userID)
		if err != nil {
			return nil, storeErr(err)
		}
		if len(wallets) > 0 {
			wallet = &wallets[0]
		}
	}

	if wallet != nil {
		return &StatusResult{
			State: model.LinkStateConnected,
			Wallet: &WalletSummary{
				Address:    wallet.Address,
				WalletType: wallet.WalletType,
				LinkedAt:   wallet.LinkedAt,
			},
		}, nil
	}

	return &StatusResult{State: model.LinkStateDisconnected}, nil
}

// GetConnection returns a connection in any lifecycle state.
func (s *ConnectService) GetConnection(ctx context.Context, connectionID string) (*model.Connection, error) {
	if !util.IsValidUUID(connectionID) {
		return nil, apperrors.InvalidInput("connectionId", "must be a UUID")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	conn, err := s.connRepo.GetByID(sctx, connectionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if conn == nil {
		return nil, apperrors.ConnectionNotFound()
	}
	return conn, nil
}

// CancelConnection explicitly cancels a pending handshake.
func (s *ConnectService) CancelConnection(ctx context.Context, connectionID string) (*model.Connection, error) {
	if !util.IsValidUUID(connectionID) {
		return nil, apperrors.InvalidInput("connectionId", "must be a UUID")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	cancelled, err := s.connRepo.Cancel(sctx, connectionID)
	if err != nil {
		return nil, storeErr(err)
	}
	if cancelled == nil {
		return nil, s.completionFailure(sctx, connectionID)
	}

	log.Info().Str("connectionId", connectionID).Msg("connection cancelled")
	audit.Log(audit.Event{
		Type:         audit.EventConnectionCancel,
		UserID:       cancelled.UserID,
		ConnectionID: connectionID,
	})

	s.publish(ctx, cancelled.UserID, notify.EventConnectionCancelled, map[string]any{
		"connectionId": connectionID,
	})

	return cancelled, nil
}

func (s *ConnectService) publish(ctx context.Context, userID int64, eventType string, data map[string]any) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, userID, eventType, data); err != nil {
		log.Warn().Err(err).Int64("userId", userID).Str("event", eventType).Msg("failed to publish connection event")
	}
}
