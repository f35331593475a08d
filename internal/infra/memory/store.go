// Package memory はプロセス内だけで完結する Ledger Store。
// STORE_DRIVER=memory の開発起動とusecaseのテストで使う。
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
)

type state struct {
	nextID int64

	orders       map[int64]model.Order
	orderItems   map[int64][]model.OrderItem
	transactions map[string]model.Transaction
	coupons      map[int64]model.Coupon
	carts        map[int64]model.Cart
	cartItems    map[int64]model.CartItem
	products     map[int64]model.Product
	zones        map[int64]model.DeliveryZone
	tracking     map[int64][]model.DeliveryTrackingSample
	users        map[int64]model.User
}

func newState() *state {
	return &state{
		nextID:       1,
		orders:       make(map[int64]model.Order),
		orderItems:   make(map[int64][]model.OrderItem),
		transactions: make(map[string]model.Transaction),
		coupons:      make(map[int64]model.Coupon),
		carts:        make(map[int64]model.Cart),
		cartItems:    make(map[int64]model.CartItem),
		products:     make(map[int64]model.Product),
		zones:        make(map[int64]model.DeliveryZone),
		tracking:     make(map[int64][]model.DeliveryTrackingSample),
		users:        make(map[int64]model.User),
	}
}

func (s *state) id() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// ロールバック用の作業コピー
func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.transactions {
		c.transactions[k] = v
	}
	for k, v := range s.coupons {
		c.coupons[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.zones {
		c.zones[k] = v
	}
	for k, v := range s.tracking {
		c.tracking[k] = append([]model.DeliveryTrackingSample(nil), v...)
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// Store はトランザクション単位で全体をロックする。
// fnが成功したときだけ作業コピーを反映する
type Store struct {
	mu    sync.Mutex
	state *state

	auditMu sync.Mutex
	audit   []model.AuditLog
}

func NewStore() *Store {
	return &Store{state: newState()}
}

var _ repo.TransactionManager = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	staged := &stagedAudit{s: s}
	if err := fn(&txRepos{st: work, audit: staged}); err != nil {
		return err
	}
	s.state = work
	s.appendAudit(staged.logs...)
	return nil
}

// ===== seed（開発起動・テスト用） =====

func (s *Store) SeedUser(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.state.id()
	}
	s.state.users[u.ID] = u
	return u
}

func (s *Store) SeedProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.state.id()
	}
	s.state.products[p.ID] = p
	return p
}

func (s *Store) SeedCoupon(c model.Coupon) model.Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.state.id()
	}
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	s.state.coupons[c.ID] = c
	return c
}

func (s *Store) SeedZone(z model.DeliveryZone) model.DeliveryZone {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z.ID == 0 {
		z.ID = s.state.id()
	}
	s.state.zones[z.ID] = z
	return z
}

// 確定済みのTransaction件数
func (s *Store) TransactionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.transactions)
}

// ===== 監査ログ =====

type auditLogs struct{ s *Store }

func (s *Store) AuditLogs() repo.TxScopedAuditLog { return auditLogs{s: s} }

func (a auditLogs) SameStoreAsTx() {}

func (a auditLogs) Create(ctx context.Context, log model.AuditLog) error {
	a.s.appendAudit(log)
	return nil
}

func (s *Store) appendAudit(logs ...model.AuditLog) {
	s.auditMu.Lock()
	defer s.auditMu.Unlock()
	for _, log := range logs {
		log.ID = int64(len(s.audit) + 1)
		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now()
		}
		s.audit = append(s.audit, log)
	}
}

// トランザクション中の監査ログ。commitしたときだけ反映する
type stagedAudit struct {
	s    *Store
	logs []model.AuditLog
}

func (a *stagedAudit) Create(ctx context.Context, log model.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func (a *stagedAudit) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	return auditLogs{s: a.s}.List(ctx, f)
}

func (a auditLogs) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	a.s.auditMu.Lock()
	defer a.s.auditMu.Unlock()

	out := make([]model.AuditLog, 0)
	for i := len(a.s.audit) - 1; i >= 0; i-- {
		l := a.s.audit[i]
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
			continue
		}
		if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		out = append(out, l)
	}

	limit, offset := f.Window()
	return page(out, offset, limit), nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortedOrders(m map[int64]model.Order) []model.Order {
	out := make([]model.Order, 0, len(m))
	for _, o := range m {
		out = append(out, o)
	}
	//新しい順
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// トランザクション外のユーザー参照（認証ミドルウェア用）
type storeUsers struct{ s *Store }

func (s *Store) Users() repo.UserRepository { return storeUsers{s: s} }

func (u storeUsers) FindByID(ctx context.Context, userID int64) (model.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	return users{u.s.state}.FindByID(ctx, userID)
}
