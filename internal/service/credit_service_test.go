package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreditServiceUnknownBalanceAllows(t *testing.T) {
	s := NewCreditService(nil)
	ctx := context.Background()

	_, known := s.Balance(ctx, 1)
	assert.False(t, known)
	// 余额未知时不拦截，由服务端裁决
	assert.True(t, s.HasSufficientBalance(ctx, 1, 100))
}

func TestCreditServiceAuthoritativeOverwrite(t *testing.T) {
	s := NewCreditService(nil)
	ctx := context.Background()

	s.ApplyAuthoritativeBalance(ctx, 1, 10)
	balance, known := s.Balance(ctx, 1)
	assert.True(t, known)
	assert.Equal(t, 10, balance)

	// 覆盖而非增减：服务端说7就是7
	s.ApplyAuthoritativeBalance(ctx, 1, 7)
	balance, _ = s.Balance(ctx, 1)
	assert.Equal(t, 7, balance)

	s.ApplyAuthoritativeBalance(ctx, 1, 42)
	balance, _ = s.Balance(ctx, 1)
	assert.Equal(t, 42, balance)
}

func TestCreditServiceNeverNegative(t *testing.T) {
	s := NewCreditService(nil)
	ctx := context.Background()

	s.ApplyAuthoritativeBalance(ctx, 1, -3)
	balance, known := s.Balance(ctx, 1)
	assert.True(t, known)
	assert.Equal(t, 0, balance)
}

func TestCreditServicePreCheck(t *testing.T) {
	s := NewCreditService(nil)
	ctx := context.Background()

	s.ApplyAuthoritativeBalance(ctx, 1, 5)
	assert.True(t, s.HasSufficientBalance(ctx, 1, 5))
	assert.False(t, s.HasSufficientBalance(ctx, 1, 6))
}

func TestCreditServicePerOwnerIsolation(t *testing.T) {
	s := NewCreditService(nil)
	ctx := context.Background()

	s.ApplyAuthoritativeBalance(ctx, 1, 3)
	s.ApplyAuthoritativeBalance(ctx, 2, 9)

	b1, _ := s.Balance(ctx, 1)
	b2, _ := s.Balance(ctx, 2)
	assert.Equal(t, 3, b1)
	assert.Equal(t, 9, b2)
}
