package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// CreditService 积分账本客户端。
// 账本只做两件事：调用前的余额预检（提前拦截注定失败的请求），
// 以及调用后用服务端回传的权威余额整值覆盖，本地不做任何增减运算。
type CreditService struct {
	mu       sync.RWMutex
	balances map[uint]int
	rdb      *redis.Client
}

func NewCreditService(rdb *redis.Client) *CreditService {
	return &CreditService{
		balances: make(map[uint]int),
		rdb:      rdb,
	}
}

func creditKey(ownerID uint) string {
	return fmt.Sprintf("credits:%d", ownerID)
}

// Balance 返回已知余额；本地没有时回源redis镜像，两处都没有则 known=false
func (s *CreditService) Balance(ctx context.Context, ownerID uint) (int, bool) {
	s.mu.RLock()
	balance, ok := s.balances[ownerID]
	s.mu.RUnlock()
	if ok {
		return balance, true
	}

	if s.rdb != nil {
		if val, err := s.rdb.Get(ctx, creditKey(ownerID)).Int(); err == nil {
			s.mu.Lock()
			s.balances[ownerID] = val
			s.mu.Unlock()
			return val, true
		}
	}

	return 0, false
}

// HasSufficientBalance 计费调用前的咨询性预检。
// 余额未知时放行：成败最终由服务端裁决，账本不独立决定计费结果。
func (s *CreditService) HasSufficientBalance(ctx context.Context, ownerID uint, cost int) bool {
	balance, known := s.Balance(ctx, ownerID)
	if !known {
		return true
	}
	return balance >= cost
}

// ApplyAuthoritativeBalance 用服务端回传余额整值覆盖，不累积本地运算偏差
func (s *CreditService) ApplyAuthoritativeBalance(ctx context.Context, ownerID uint, newBalance int) {
	if newBalance < 0 {
		newBalance = 0
	}

	s.mu.Lock()
	s.balances[ownerID] = newBalance
	s.mu.Unlock()

	if s.rdb != nil {
		s.rdb.Set(ctx, creditKey(ownerID), newBalance, 24*time.Hour)
	}
}
