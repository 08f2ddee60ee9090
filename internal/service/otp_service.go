package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medichat-api/internal/models"
	"github.com/noah-isme/medichat-api/pkg/config"
	appErrors "github.com/noah-isme/medichat-api/pkg/errors"
)

type otpStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type mobileIndexer interface {
	BlindIndex(value string) string
}

// OTPSender delivers a one-time code to a mobile number.
type OTPSender interface {
	Send(ctx context.Context, mobile, code string) error
}

// LogSender writes codes to the log instead of delivering them. The code is
// only logged when Reveal is set.
type LogSender struct {
	Logger *zap.Logger
	Reveal bool
}

// Send implements OTPSender.
func (s LogSender) Send(_ context.Context, mobile, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	fields := []zap.Field{zap.String("mobile", maskMobile(mobile))}
	if s.Reveal {
		fields = append(fields, zap.String("code", code))
	}
	logger.Info("one-time code issued", fields...)
	return nil
}

// otpEntry is the pending code. Failed attempts are counted under a separate
// key so concurrent guesses cannot overwrite each other's increments.
type otpEntry struct {
	CodeHash  string    `json:"code_hash"`
	ExpiresAt time.Time `json:"expires_at"`
}

// OTPService issues and checks one-time login codes kept in Redis.
type OTPService struct {
	store     otpStore
	indexer   mobileIndexer
	sender    OTPSender
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.OTPConfig
	now       func() time.Time
}

// NewOTPService constructs an OTPService.
func NewOTPService(store otpStore, indexer mobileIndexer, sender OTPSender, validate *validator.Validate, logger *zap.Logger, cfg config.OTPConfig) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Length < 4 || cfg.Length > 8 {
		cfg.Length = 6
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &OTPService{store: store, indexer: indexer, sender: sender, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// Request generates a code for the number and hands it to the sender. It
// succeeds whether or not the number belongs to a user.
func (s *OTPService) Request(ctx context.Context, req models.OTPRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mobile number")
	}

	code, err := randomDigits(s.cfg.Length)
	if err != nil {
		return appErrors.Internal(err)
	}

	entry := otpEntry{
		CodeHash:  s.hashCode(req.Mobile, code),
		ExpiresAt: s.now().UTC().Add(s.cfg.TTL),
	}
	if err := s.store.Set(ctx, s.key(req.Mobile), entry, s.cfg.TTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "could not store verification code")
	}
	if err := s.store.Delete(ctx, s.attemptsKey(req.Mobile)); err != nil {
		s.logger.Warn("failed to reset otp attempts", zap.Error(err))
	}

	if err := s.sender.Send(ctx, req.Mobile, code); err != nil {
		s.logger.Error("failed to send one-time code", zap.String("mobile", maskMobile(req.Mobile)), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "could not send verification code")
	}
	return nil
}

// Verify checks code against the pending entry for mobile. Every attempt
// takes a slot from an atomic counter first, so at most MaxAttempts codes are
// ever compared. A successful check consumes the entry.
func (s *OTPService) Verify(ctx context.Context, mobile, code string) error {
	key := s.key(mobile)
	var entry otpEntry
	if err := s.store.Get(ctx, key, &entry); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return appErrors.ErrOTPExpired
		}
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "could not read verification code")
	}

	remaining := entry.ExpiresAt.Sub(s.now().UTC())
	if remaining <= 0 {
		s.consume(ctx, mobile)
		return appErrors.ErrOTPExpired
	}

	attempts, err := s.store.Increment(ctx, s.attemptsKey(mobile), remaining)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "could not record verification attempt")
	}
	if attempts > int64(s.cfg.MaxAttempts) {
		return appErrors.ErrOTPLocked
	}

	expected := []byte(entry.CodeHash)
	actual := []byte(s.hashCode(mobile, code))
	if subtle.ConstantTimeCompare(expected, actual) != 1 {
		if attempts >= int64(s.cfg.MaxAttempts) {
			return appErrors.ErrOTPLocked
		}
		return appErrors.ErrOTPInvalid
	}

	s.consume(ctx, mobile)
	return nil
}

func (s *OTPService) consume(ctx context.Context, mobile string) {
	for _, key := range []string{s.key(mobile), s.attemptsKey(mobile)} {
		if err := s.store.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to clear otp state", zap.Error(err))
		}
	}
}

func (s *OTPService) key(mobile string) string {
	return s.indexer.BlindIndex(mobile)
}

func (s *OTPService) attemptsKey(mobile string) string {
	return s.key(mobile) + ":attempts"
}

func (s *OTPService) hashCode(mobile, code string) string {
	sum := sha256.Sum256([]byte(s.indexer.BlindIndex(mobile) + ":" + code))
	return hex.EncodeToString(sum[:])
}

func randomDigits(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func maskMobile(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return "****" + mobile[len(mobile)-4:]
}
