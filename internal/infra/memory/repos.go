package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"
	repo "github.com/Smart3990/Kiyumart-sub000/internal/repository"
	"github.com/shopspring/decimal"
)

// 作業コピーに対するリポジトリ群
type txRepos struct {
	st    *state
	audit *stagedAudit
}

func (r *txRepos) Orders() repo.OrderRepository               { return orders{r.st} }
func (r *txRepos) OrderItems() repo.OrderItemRepository       { return orderItems{r.st} }
func (r *txRepos) Transactions() repo.TransactionRepository   { return transactions{r.st} }
func (r *txRepos) Coupons() repo.CouponRepository             { return coupons{r.st} }
func (r *txRepos) Carts() repo.CartRepository                 { return carts{r.st} }
func (r *txRepos) CartItems() repo.CartItemRepository         { return cartItems{r.st} }
func (r *txRepos) Inventory() repo.InventoryRepository        { return inventory{r.st} }
func (r *txRepos) Products() repo.ProductRepository           { return products{r.st} }
func (r *txRepos) DeliveryZones() repo.DeliveryZoneRepository { return zones{r.st} }
func (r *txRepos) Tracking() repo.TrackingRepository          { return tracking{r.st} }
func (r *txRepos) Users() repo.UserRepository                 { return users{r.st} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository         { return r.audit }

// ===== orders =====

type orders struct{ st *state }

func (r orders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

// 全体ロック中なのでFindByIDと同じ
func (r orders) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r orders) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}

	matched := make([]model.Order, 0)
	for _, o := range sortedOrders(r.st.orders) {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
			continue
		}
		if f.SellerID != nil && o.SellerID != *f.SellerID {
			continue
		}
		if f.RiderID != nil && (o.RiderID == nil || *o.RiderID != *f.RiderID) {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, o)
	}

	return page(matched, (f.Page-1)*f.Limit, f.Limit), int64(len(matched)), nil
}

func (r orders) Create(ctx context.Context, order *model.Order) error {
	for _, o := range r.st.orders {
		if o.OrderNumber == order.OrderNumber {
			return repo.ErrDuplicate
		}
	}
	order.ID = r.st.id()
	r.st.orders[order.ID] = *order
	return nil
}

func (r orders) Update(ctx context.Context, orderID int64, patch model.OrderPatch) (model.Order, error) {
	o, ok := r.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	if patch.PaymentReference != nil {
		for id, other := range r.st.orders {
			if id != orderID && other.PaymentReference != nil && *other.PaymentReference == *patch.PaymentReference {
				return model.Order{}, repo.ErrDuplicate
			}
		}
	}
	o.Apply(patch)
	r.st.orders[orderID] = o
	return o, nil
}

// ===== order items =====

type orderItems struct{ st *state }

func (r orderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for i := range items {
		items[i].ID = r.st.id()
		items[i].OrderID = orderID
	}
	r.st.orderItems[orderID] = append(r.st.orderItems[orderID], items...)
	return nil
}

func (r orderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	return append([]model.OrderItem{}, r.st.orderItems[orderID]...), nil
}

// ===== transactions =====

type transactions struct{ st *state }

func (r transactions) FindByReference(ctx context.Context, reference string) (model.Transaction, error) {
	t, ok := r.st.transactions[reference]
	if !ok {
		return model.Transaction{}, repo.ErrNotFound
	}
	return t, nil
}

func (r transactions) Create(ctx context.Context, t *model.Transaction) error {
	if _, exists := r.st.transactions[t.PaymentReference]; exists {
		return repo.ErrDuplicate
	}
	t.ID = r.st.id()
	r.st.transactions[t.PaymentReference] = *t
	return nil
}

// ===== coupons =====

type coupons struct{ st *state }

func (r coupons) FindByCode(ctx context.Context, code string) (model.Coupon, error) {
	code = strings.TrimSpace(code)
	for _, c := range r.st.coupons {
		if strings.EqualFold(c.Code, code) {
			return c, nil
		}
	}
	return model.Coupon{}, repo.ErrNotFound
}

func (r coupons) IncrementUsageIfAvailable(ctx context.Context, couponID int64) (bool, error) {
	c, ok := r.st.coupons[couponID]
	if !ok {
		return false, repo.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return false, nil
	}
	c.UsedCount++
	r.st.coupons[couponID] = c
	return true, nil
}

// ===== carts =====

type carts struct{ st *state }

func (r carts) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	c, err := r.FindActiveByUserID(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, err
	}
	c = model.Cart{ID: r.st.id(), UserID: userID, Status: model.CartStatusActive}
	r.st.carts[c.ID] = c
	return c, nil
}

func (r carts) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	for _, c := range r.st.carts {
		if c.UserID == userID && c.Status == model.CartStatusActive {
			return c, nil
		}
	}
	return model.Cart{}, repo.ErrNotFound
}

type cartItems struct{ st *state }

func (r cartItems) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	out := make([]model.CartItem, 0)
	for _, it := range r.st.cartItems {
		if it.CartID == cartID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r cartItems) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64, unitPriceSnapshot decimal.Decimal) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	for id, it := range r.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity += addQty
			r.st.cartItems[id] = it
			return nil
		}
	}
	it := model.CartItem{
		ID:                r.st.id(),
		CartID:            cartID,
		ProductID:         productID,
		Quantity:          addQty,
		UnitPriceSnapshot: unitPriceSnapshot,
	}
	r.st.cartItems[it.ID] = it
	return nil
}

func (r cartItems) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	it, ok := r.st.cartItems[cartItemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.Quantity = qty
	r.st.cartItems[cartItemID] = it
	return nil
}

func (r cartItems) DeleteByID(ctx context.Context, cartItemID int64) error {
	if _, ok := r.st.cartItems[cartItemID]; !ok {
		return repo.ErrNotFound
	}
	delete(r.st.cartItems, cartItemID)
	return nil
}

func (r cartItems) DeleteByIDs(ctx context.Context, cartItemIDs []int64) error {
	for _, id := range cartItemIDs {
		delete(r.st.cartItems, id)
	}
	return nil
}

func (r cartItems) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	it, ok := r.st.cartItems[cartItemID]
	if !ok {
		return model.CartItem{}, repo.ErrNotFound
	}
	return it, nil
}

// ===== catalog / inventory =====

type products struct{ st *state }

func (r products) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := r.st.products[id]
	if !ok || p.DeletedAt.Valid {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

type inventory struct{ st *state }

func (r inventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	p, ok := r.st.products[productID]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	r.st.products[productID] = p
	return true, nil
}

func (r inventory) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	p, ok := r.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	p.Stock += qty
	r.st.products[productID] = p
	return nil
}

type zones struct{ st *state }

func (r zones) FindByID(ctx context.Context, id int64) (model.DeliveryZone, error) {
	z, ok := r.st.zones[id]
	if !ok {
		return model.DeliveryZone{}, repo.ErrNotFound
	}
	return z, nil
}

// ===== tracking / users =====

type tracking struct{ st *state }

func (r tracking) Append(ctx context.Context, s *model.DeliveryTrackingSample) error {
	s.ID = r.st.id()
	r.st.tracking[s.OrderID] = append(r.st.tracking[s.OrderID], *s)
	return nil
}

func (r tracking) Latest(ctx context.Context, orderID int64) (model.DeliveryTrackingSample, error) {
	samples := r.st.tracking[orderID]
	if len(samples) == 0 {
		return model.DeliveryTrackingSample{}, repo.ErrNotFound
	}
	latest := samples[0]
	for _, s := range samples[1:] {
		if s.RecordedAt.After(latest.RecordedAt) {
			latest = s
		}
	}
	return latest, nil
}

type users struct{ st *state }

func (r users) FindByID(ctx context.Context, userID int64) (model.User, error) {
	u, ok := r.st.users[userID]
	if !ok {
		return model.User{}, repo.ErrNotFound
	}
	return u, nil
}
