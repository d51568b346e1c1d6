package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"tienda-ledger/domain"
)

const watchBuffer = 16

// MemoryStore implementa los almacenes sobre mapas en memoria. Respeta el
// mismo contrato de escritura condicional y suscripción que RedisStore,
// usando un bus de eventos para propagar los cambios a los observadores.
type MemoryStore struct {
	mu       sync.RWMutex
	deudas   map[string]domain.DebtAccount
	catalogo map[string]domain.Product
	pedidos  map[string]domain.Order
	deseados map[string]domain.WishItem
	node     *snowflake.Node
	bus      EventBus.Bus
}

func NewMemoryStore(node *snowflake.Node) *MemoryStore {
	return &MemoryStore{
		deudas:   make(map[string]domain.DebtAccount),
		catalogo: make(map[string]domain.Product),
		pedidos:  make(map[string]domain.Order),
		deseados: make(map[string]domain.WishItem),
		node:     node,
		bus:      EventBus.New(),
	}
}

// pushKey genera claves ordenadas por tiempo de creación, como las claves
// hijas del almacén remoto.
func (m *MemoryStore) pushKey() string {
	return m.node.Generate().String()
}

func deudaTopic(id string) string {
	return "deudas:" + id
}

func copyAccount(a domain.DebtAccount) domain.DebtAccount {
	out := a
	out.Productos = make([]domain.LoanItem, len(a.Productos))
	copy(out.Productos, a.Productos)
	return out
}

func copyOrder(o domain.Order) domain.Order {
	out := o
	out.Productos = make([]domain.OrderItem, len(o.Productos))
	copy(out.Productos, o.Productos)
	return out
}

func (m *MemoryStore) CreateAccount(ctx context.Context, nombre string) (domain.DebtAccount, error) {
	acct := domain.DebtAccount{
		ID:         m.pushKey(),
		Nombre:     nombre,
		TotalDeuda: decimal.Zero,
		Productos:  []domain.LoanItem{},
		Version:    1,
	}

	m.mu.Lock()
	m.deudas[acct.ID] = copyAccount(acct)
	m.mu.Unlock()

	m.bus.Publish(deudaTopic(acct.ID), copyAccount(acct))
	return acct, nil
}

func (m *MemoryStore) GetAccount(ctx context.Context, id string) (domain.DebtAccount, error) {
	m.mu.RLock()
	acct, ok := m.deudas[id]
	m.mu.RUnlock()
	if !ok {
		return domain.DebtAccount{}, domain.ErrAccountNotFound
	}
	return copyAccount(acct), nil
}

func (m *MemoryStore) ListAccounts(ctx context.Context) ([]domain.DebtAccount, error) {
	m.mu.RLock()
	out := make([]domain.DebtAccount, 0, len(m.deudas))
	for _, acct := range m.deudas {
		out = append(out, copyAccount(acct))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateAccount(ctx context.Context, acct domain.DebtAccount) (domain.DebtAccount, error) {
	m.mu.Lock()
	stored, ok := m.deudas[acct.ID]
	if !ok {
		m.mu.Unlock()
		return domain.DebtAccount{}, domain.ErrAccountNotFound
	}
	if stored.Version != acct.Version {
		m.mu.Unlock()
		return domain.DebtAccount{}, domain.ErrVersionConflict
	}
	acct.Version++
	m.deudas[acct.ID] = copyAccount(acct)
	m.mu.Unlock()

	m.bus.Publish(deudaTopic(acct.ID), copyAccount(acct))
	return acct, nil
}

func (m *MemoryStore) WatchAccount(ctx context.Context, id string) (<-chan domain.DebtAccount, error) {
	if _, err := m.GetAccount(ctx, id); err != nil {
		return nil, err
	}

	ch := make(chan domain.DebtAccount, watchBuffer)

	// Las versiones entregadas son estrictamente crecientes: un evento que el
	// bus encoló antes de la instantánea inicial se descarta en lugar de
	// retroceder el estado del observador.
	var emitMu sync.Mutex
	var lastVersion int64
	closed := false
	emit := func(acct domain.DebtAccount) {
		emitMu.Lock()
		defer emitMu.Unlock()
		if closed || acct.Version <= lastVersion {
			return
		}
		lastVersion = acct.Version
		select {
		case ch <- acct:
		default:
			// observador lento: se pierde el intermedio, el siguiente
			// evento trae el estado completo
		}
	}

	if err := m.bus.Subscribe(deudaTopic(id), emit); err != nil {
		return nil, err
	}

	// La instantánea se relee después de suscribirse: una escritura entre la
	// comprobación de existencia y la suscripción queda reflejada aquí.
	current, err := m.GetAccount(ctx, id)
	if err != nil {
		m.bus.Unsubscribe(deudaTopic(id), emit)
		return nil, err
	}
	emit(current)

	go func() {
		<-ctx.Done()
		m.bus.Unsubscribe(deudaTopic(id), emit)
		emitMu.Lock()
		closed = true
		close(ch)
		emitMu.Unlock()
	}()

	return ch, nil
}

func (m *MemoryStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = m.pushKey()
	m.mu.Lock()
	m.catalogo[p.ID] = p
	m.mu.Unlock()
	return p, nil
}

func (m *MemoryStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	m.mu.RLock()
	p, ok := m.catalogo[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (m *MemoryStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	out := make([]domain.Product, 0, len(m.catalogo))
	for _, p := range m.catalogo {
		out = append(out, p)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogo[p.ID]; !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	m.catalogo[p.ID] = p
	return p, nil
}

func (m *MemoryStore) DeleteProduct(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalogo[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(m.catalogo, id)
	return nil
}

func (m *MemoryStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	o.ID = m.pushKey()
	o.Version = 1
	m.mu.Lock()
	m.pedidos[o.ID] = copyOrder(o)
	m.mu.Unlock()
	return o, nil
}

func (m *MemoryStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	m.mu.RLock()
	o, ok := m.pedidos[id]
	m.mu.RUnlock()
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return copyOrder(o), nil
}

func (m *MemoryStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	m.mu.RLock()
	out := make([]domain.Order, 0, len(m.pedidos))
	for _, o := range m.pedidos {
		out = append(out, copyOrder(o))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.pedidos[o.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if stored.Version != o.Version {
		return domain.Order{}, domain.ErrVersionConflict
	}
	o.Version++
	m.pedidos[o.ID] = copyOrder(o)
	return o, nil
}

func (m *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pedidos[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(m.pedidos, id)
	return nil
}

func (m *MemoryStore) AddWishItem(ctx context.Context, item domain.WishItem) (domain.WishItem, error) {
	item.ID = m.pushKey()
	m.mu.Lock()
	m.deseados[item.ID] = item
	m.mu.Unlock()
	return item, nil
}

func (m *MemoryStore) ListWishItems(ctx context.Context) ([]domain.WishItem, error) {
	m.mu.RLock()
	out := make([]domain.WishItem, 0, len(m.deseados))
	for _, item := range m.deseados {
		out = append(out, item)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) RemoveWishItem(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deseados[id]; !ok {
		return domain.ErrWishNotFound
	}
	delete(m.deseados, id)
	return nil
}
