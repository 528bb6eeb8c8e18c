package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	"github.com/accordly/accordly/internal/contract/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSigning(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&contractdomain.Contract{}, &contractdomain.Field{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: repository.Provide(),
	}).(*Service)
	return svc, db, node
}

func seedContractWithField(t *testing.T, db *gorm.DB, node *snowflake.Node) (*contractdomain.Contract, *contractdomain.Field) {
	t.Helper()

	contract := &contractdomain.Contract{
		ID:             node.Generate(),
		OrgID:          node.Generate(),
		ContractNumber: "CT-20260601-TESTTEST",
		Title:          "NDA",
		Status:         contractdomain.StatusSent,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(contract).Error)

	field := &contractdomain.Field{
		ID:         node.Generate(),
		ContractID: contract.ID,
		Type:       contractdomain.FieldSignature,
		Required:   true,
		Page:       1,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, db.Create(field).Error)
	return contract, field
}

func TestIssueAndRedeemToken(t *testing.T) {
	svc, db, node := setupSigning(t)
	contract, field := seedContractWithField(t, db, node)

	token, err := svc.IssueToken(context.Background(), db, field)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(token), 43)

	gotField, gotContract, err := svc.Redeem(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, field.ID, gotField.ID)
	assert.Equal(t, contract.ID, gotContract.ID)
}

func TestRedeemIsRepeatable(t *testing.T) {
	svc, db, node := setupSigning(t)
	_, field := seedContractWithField(t, db, node)

	token, err := svc.IssueToken(context.Background(), db, field)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		gotField, _, err := svc.Redeem(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, field.ID, gotField.ID)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	svc, _, _ := setupSigning(t)

	_, _, err := svc.Redeem(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, contractdomain.ErrTokenNotFound)

	_, _, err = svc.Redeem(context.Background(), "   ")
	assert.ErrorIs(t, err, contractdomain.ErrTokenNotFound)
}

func TestIssueTokenRotates(t *testing.T) {
	svc, db, node := setupSigning(t)
	_, field := seedContractWithField(t, db, node)

	first, err := svc.IssueToken(context.Background(), db, field)
	require.NoError(t, err)
	second, err := svc.IssueToken(context.Background(), db, field)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	// Only the latest token resolves.
	_, _, err = svc.Redeem(context.Background(), first)
	assert.ErrorIs(t, err, contractdomain.ErrTokenNotFound)

	gotField, _, err := svc.Redeem(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, field.ID, gotField.ID)
}
