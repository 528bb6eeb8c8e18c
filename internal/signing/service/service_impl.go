package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	signingdomain "github.com/accordly/accordly/internal/signing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tokenBytes = 32

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo contractdomain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo contractdomain.Repository
}

func New(p Params) signingdomain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("signing.service"),
		repo: p.Repo,
	}
}

func (s *Service) IssueToken(ctx context.Context, db *gorm.DB, field *contractdomain.Field) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	field.SigningToken = token
	if err := s.repo.UpdateField(ctx, db, field); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) Redeem(ctx context.Context, token string) (*contractdomain.Field, *contractdomain.Contract, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, contractdomain.ErrTokenNotFound
	}

	field, err := s.repo.FindFieldByToken(ctx, s.db, token)
	if err != nil {
		return nil, nil, err
	}
	if field == nil {
		return nil, nil, contractdomain.ErrTokenNotFound
	}

	contract, err := s.repo.FindByIDAny(ctx, s.db, field.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if contract == nil {
		return nil, nil, contractdomain.ErrNotFound
	}

	return field, contract, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
