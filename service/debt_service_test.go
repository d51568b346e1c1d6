package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"

	"tienda-ledger/domain"
	"tienda-ledger/repository"
)

func testNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

func newTestDebtService(t *testing.T) (*DebtService, *repository.MemoryStore, *repository.MockCache) {
	t.Helper()
	node := testNode(t)
	store := repository.NewMemoryStore(node)
	cache := repository.NewMockCache()
	return NewDebtService(store, cache, node), store, cache
}

func seedAccount(t *testing.T, s *DebtService, totals ...float64) domain.DebtAccount {
	t.Helper()
	ctx := context.Background()

	acct, err := s.CreateAccount(ctx, "Cliente de prueba")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	for i, total := range totals {
		acct, err = s.AddItem(ctx, acct.ID, NewLoanItem{
			Nombre:         "producto",
			Cantidad:       1,
			PrecioUnitario: dec(total),
			FechaPrestamo:  "2026-01-0" + string(rune('1'+i)),
		})
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
	}
	return acct
}

func TestDebtService_AddItemUpdatesTotal(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30, 20)

	if !acct.TotalDeuda.Equal(dec(50)) {
		t.Errorf("expected total 50, got %s", acct.TotalDeuda)
	}
	if len(acct.Productos) != 2 {
		t.Errorf("expected 2 items, got %d", len(acct.Productos))
	}
}

func TestDebtService_EditItemIdempotent(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30)
	item := acct.Productos[0]

	// editar con los mismos valores no cambia nada
	updated, err := s.EditItem(context.Background(), acct.ID, item.ID, EditLoanItem{
		Nombre:         item.Nombre,
		Cantidad:       item.Cantidad,
		PrecioUnitario: item.PrecioUnitario,
	})
	if err != nil {
		t.Fatalf("edit item: %v", err)
	}

	if !updated.TotalDeuda.Equal(acct.TotalDeuda) {
		t.Errorf("total changed: %s -> %s", acct.TotalDeuda, updated.TotalDeuda)
	}
	if !updated.Productos[0].Total.Equal(item.Total) {
		t.Errorf("outstanding changed: %s -> %s", item.Total, updated.Productos[0].Total)
	}
}

func TestDebtService_EditItemDiscardsPartialPayment(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30)

	ctx := context.Background()
	if _, err := s.ApplyPayment(ctx, acct.ID, dec(10)); err != nil {
		t.Fatalf("apply payment: %v", err)
	}

	item := acct.Productos[0]
	updated, err := s.EditItem(ctx, acct.ID, item.ID, EditLoanItem{
		Nombre:         item.Nombre,
		Cantidad:       item.Cantidad,
		PrecioUnitario: item.PrecioUnitario,
	})
	if err != nil {
		t.Fatalf("edit item: %v", err)
	}

	// el saldo se recalcula desde cero: el pago parcial previo se pierde
	if !updated.Productos[0].Total.Equal(dec(30)) {
		t.Errorf("expected outstanding 30 after edit, got %s", updated.Productos[0].Total)
	}
	if !updated.TotalDeuda.Equal(dec(30)) {
		t.Errorf("expected total 30, got %s", updated.TotalDeuda)
	}
}

func TestDebtService_DeleteItemOrderIndependent(t *testing.T) {

	ctx := context.Background()

	run := func(first, second int) domain.DebtAccount {
		s, _, _ := newTestDebtService(t)
		acct := seedAccount(t, s, 30, 20, 50)

		a, err := s.DeleteItem(ctx, acct.ID, acct.Productos[first].ID)
		if err != nil {
			t.Fatalf("delete first: %v", err)
		}
		var target snowflake.ID
		for _, it := range a.Productos {
			if it.ID == acct.Productos[second].ID {
				target = it.ID
			}
		}
		a, err = s.DeleteItem(ctx, acct.ID, target)
		if err != nil {
			t.Fatalf("delete second: %v", err)
		}
		return a
	}

	ab := run(0, 1)
	ba := run(1, 0)

	if !ab.TotalDeuda.Equal(ba.TotalDeuda) {
		t.Errorf("totals differ by delete order: %s vs %s", ab.TotalDeuda, ba.TotalDeuda)
	}
	if len(ab.Productos) != 1 || len(ba.Productos) != 1 {
		t.Fatalf("expected 1 survivor each, got %d and %d", len(ab.Productos), len(ba.Productos))
	}
	if !ab.Productos[0].Total.Equal(ba.Productos[0].Total) {
		t.Errorf("survivors differ: %s vs %s", ab.Productos[0].Total, ba.Productos[0].Total)
	}
}

func TestDebtService_UnknownItem(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30)

	_, err := s.EditItem(context.Background(), acct.ID, snowflake.ID(999), EditLoanItem{
		Nombre:         "x",
		Cantidad:       1,
		PrecioUnitario: dec(1),
	})
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}

	_, err = s.DeleteItem(context.Background(), acct.ID, snowflake.ID(999))
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestDebtService_ApplyPaymentFlow(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30, 20, 50)

	res, err := s.ApplyPayment(context.Background(), acct.ID, dec(40))
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}

	if !res.Deuda.TotalDeuda.Equal(dec(60)) {
		t.Errorf("expected total 60, got %s", res.Deuda.TotalDeuda)
	}
	if len(res.Deuda.Productos) != 2 {
		t.Fatalf("expected 2 survivors, got %d", len(res.Deuda.Productos))
	}
	if !res.Aplicado.Equal(dec(40)) || !res.Sobrante.IsZero() {
		t.Errorf("expected 40 applied with no surplus, got %s / %s", res.Aplicado, res.Sobrante)
	}
}

func TestDebtService_InvalidPaymentLeavesAccountUnchanged(t *testing.T) {

	s, _, _ := newTestDebtService(t)
	acct := seedAccount(t, s, 30, 20)

	_, err := s.ApplyPayment(context.Background(), acct.ID, dec(-1))
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	after, err := s.GetAccount(context.Background(), acct.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if !after.TotalDeuda.Equal(acct.TotalDeuda) {
		t.Errorf("total changed: %s -> %s", acct.TotalDeuda, after.TotalDeuda)
	}
	if after.Version != acct.Version {
		t.Errorf("version changed: %d -> %d", acct.Version, after.Version)
	}
}

// conflictingStore mete un escritor rival justo antes de la primera
// escritura condicional, forzando un conflicto de versión.
type conflictingStore struct {
	repository.DebtStore
	raced bool
}

func (c *conflictingStore) UpdateAccount(ctx context.Context, acct domain.DebtAccount) (domain.DebtAccount, error) {
	if !c.raced {
		c.raced = true
		if rival, err := c.DebtStore.GetAccount(ctx, acct.ID); err == nil {
			c.DebtStore.UpdateAccount(ctx, rival)
		}
	}
	return c.DebtStore.UpdateAccount(ctx, acct)
}

func TestDebtService_RetriesOnVersionConflict(t *testing.T) {

	node := testNode(t)
	inner := repository.NewMemoryStore(node)
	store := &conflictingStore{DebtStore: inner}
	s := NewDebtService(store, repository.NewMockCache(), node)

	ctx := context.Background()
	acct, err := s.CreateAccount(ctx, "Cliente")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}

	updated, err := s.AddItem(ctx, acct.ID, NewLoanItem{
		Nombre:         "pan",
		Cantidad:       2,
		PrecioUnitario: dec(5),
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if !updated.TotalDeuda.Equal(dec(10)) {
		t.Errorf("expected total 10, got %s", updated.TotalDeuda)
	}
	if !store.raced {
		t.Errorf("rival writer never ran")
	}
}

func TestDebtService_ListAccountsUsesCache(t *testing.T) {

	s, _, cache := newTestDebtService(t)
	seedAccount(t, s, 30)

	ctx := context.Background()
	if _, err := s.ListAccounts(ctx); err != nil {
		t.Fatalf("list accounts: %v", err)
	}
	if _, ok := cache.Get("deudas:resumen"); !ok {
		t.Fatalf("expected summaries cached")
	}

	// cualquier escritura invalida el resumen
	if _, err := s.CreateAccount(ctx, "Otro cliente"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if _, ok := cache.Get("deudas:resumen"); ok {
		t.Errorf("expected cache invalidated after create")
	}
}
