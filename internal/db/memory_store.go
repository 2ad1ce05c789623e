package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// MemoryStore is an in-process Store. Transactions are serialized behind a
// single mutex and their writes are staged until fn returns nil.
type MemoryStore struct {
	mu           sync.Mutex
	products     map[string]models.Product
	users        map[string]models.User
	inventory    map[string]models.InventoryRecord
	orders       map[string]models.Order
	transactions []models.InventoryTransaction
	sequences    map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:  make(map[string]models.Product),
		users:     make(map[string]models.User),
		inventory: make(map[string]models.InventoryRecord),
		orders:    make(map[string]models.Order),
		sequences: make(map[string]int),
	}
}

// PutProduct adds or replaces a catalog entry.
func (s *MemoryStore) PutProduct(p models.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// PutUser adds or replaces an account.
func (s *MemoryStore) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *MemoryStore) GetProduct(_ context.Context, id string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) ListAdminIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := []string{}
	for _, u := range s.users {
		if u.Role == models.RoleAdmin && (u.Status == "active" || u.Status == "approved") {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memTx struct {
	store        *MemoryStore
	inventory    map[string]models.InventoryRecord
	orders       map[string]models.Order
	transactions []models.InventoryTransaction
	sequences    map[string]int
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:     s,
		inventory: make(map[string]models.InventoryRecord),
		orders:    make(map[string]models.Order),
		sequences: make(map[string]int),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for k, v := range tx.inventory {
		s.inventory[k] = v
	}
	for k, v := range tx.orders {
		s.orders[k] = v
	}
	for k, v := range tx.sequences {
		s.sequences[k] = v
	}
	s.transactions = append(s.transactions, tx.transactions...)
	return nil
}

func (t *memTx) LockInventory(_ context.Context, productID string) (*models.InventoryRecord, error) {
	if rec, ok := t.inventory[productID]; ok {
		return &rec, nil
	}
	if rec, ok := t.store.inventory[productID]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (t *memTx) InsertInventory(_ context.Context, rec models.InventoryRecord) error {
	if _, ok := t.store.inventory[rec.ProductID]; ok {
		return models.NewError(models.ErrInternal, "inventory for product %s already exists", rec.ProductID)
	}
	if _, ok := t.inventory[rec.ProductID]; ok {
		return models.NewError(models.ErrInternal, "inventory for product %s already exists", rec.ProductID)
	}
	t.inventory[rec.ProductID] = rec
	return nil
}

func (t *memTx) UpdateInventory(_ context.Context, rec models.InventoryRecord) error {
	_, staged := t.inventory[rec.ProductID]
	_, stored := t.store.inventory[rec.ProductID]
	if !staged && !stored {
		return models.NewError(models.ErrInternal, "inventory %s not found", rec.ID)
	}
	t.inventory[rec.ProductID] = rec
	return nil
}

func (t *memTx) LockOrder(_ context.Context, id string) (*models.Order, error) {
	if o, ok := t.orders[id]; ok {
		return &o, nil
	}
	if o, ok := t.store.orders[id]; ok {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		return &o, nil
	}
	return nil, nil
}

func (t *memTx) InsertOrder(_ context.Context, o models.Order) error {
	for _, existing := range t.store.orders {
		if existing.OrderNumber == o.OrderNumber {
			return models.NewError(models.ErrInternal, "duplicate order number %s", o.OrderNumber)
		}
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	t.orders[o.ID] = o
	return nil
}

func (t *memTx) UpdateOrder(_ context.Context, o models.Order) error {
	_, staged := t.orders[o.ID]
	_, stored := t.store.orders[o.ID]
	if !staged && !stored {
		return models.NewError(models.ErrInternal, "order %s not found", o.ID)
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	t.orders[o.ID] = o
	return nil
}

func (t *memTx) AppendTransaction(_ context.Context, entry *models.InventoryTransaction) error {
	t.transactions = append(t.transactions, *entry)
	return nil
}

func (t *memTx) NextOrderSequence(_ context.Context, day time.Time) (int, error) {
	key := day.Format("2006-01-02")
	seq, ok := t.sequences[key]
	if !ok {
		seq = t.store.sequences[key]
	}
	seq++
	t.sequences[key] = seq
	return seq, nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Items = append([]models.OrderItem(nil), o.Items...)
	return &o, nil
}

func (s *MemoryStore) ListOrders(_ context.Context, f models.OrderFilter) (models.Page[models.Order], error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Order
	for _, o := range s.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.WholesalerID != "" && o.WholesalerID != f.WholesalerID {
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
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].OrderNumber > matched[j].OrderNumber
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, f.Page, f.Limit), nil
}

func (s *MemoryStore) view(rec models.InventoryRecord) models.InventoryView {
	p := s.products[rec.ProductID]
	return models.InventoryView{
		InventoryRecord: rec,
		ProductName:     p.Name,
		SKU:             p.SKU,
		Category:        p.Category,
		Unit:            p.Unit,
	}
}

func (s *MemoryStore) GetInventory(_ context.Context, productID string) (*models.InventoryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.inventory[productID]
	if !ok {
		return nil, nil
	}
	v := s.view(rec)
	return &v, nil
}

func (s *MemoryStore) ListInventory(_ context.Context, f models.InventoryFilter) (models.Page[models.InventoryView], error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	var views []models.InventoryView
	for _, rec := range s.inventory {
		if f.LowStockOnly && !rec.IsLowStock() {
			continue
		}
		views = append(views, s.view(rec))
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].UpdatedAt.Equal(views[j].UpdatedAt) {
			return views[i].ProductID < views[j].ProductID
		}
		return views[i].UpdatedAt.After(views[j].UpdatedAt)
	})
	return paginate(views, f.Page, f.Limit), nil
}

func (s *MemoryStore) ListLowStock(_ context.Context) ([]models.InventoryView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := []models.InventoryView{}
	for _, rec := range s.inventory {
		if rec.IsLowStock() {
			views = append(views, s.view(rec))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].AvailableQuantity == views[j].AvailableQuantity {
			return views[i].ProductID < views[j].ProductID
		}
		return views[i].AvailableQuantity < views[j].AvailableQuantity
	})
	return views, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, f models.TransactionFilter) (models.Page[models.InventoryTransaction], error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.InventoryTransaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		t := s.transactions[i]
		if f.ProductID != "" && t.ProductID != f.ProductID {
			continue
		}
		if f.Type != "" && t.Type != f.Type {
			continue
		}
		if f.From != nil && t.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && t.CreatedAt.After(*f.To) {
			continue
		}
		matched = append(matched, t)
	}
	return paginate(matched, f.Page, f.Limit), nil
}

func paginate[T any](items []T, page, limit int) models.Page[T] {
	p := models.Page[T]{Total: len(items), Page: page, Limit: limit, Items: []T{}}
	start := models.Offset(page, limit)
	if start < 0 || start >= len(items) {
		return p
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	p.Items = append(p.Items, items[start:end]...)
	return p
}
