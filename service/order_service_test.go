package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/snowflake"

	"tienda-ledger/domain"
	"tienda-ledger/repository"
)

func newTestOrderService(t *testing.T) *OrderService {
	t.Helper()
	node := testNode(t)
	store := repository.NewMemoryStore(node)
	return NewOrderService(store, store, node)
}

func TestOrderService_CreateAndToggle(t *testing.T) {

	s := newTestOrderService(t)
	ctx := context.Background()

	o, err := s.Create(ctx, NewOrder{
		Proveedor: "Distribuidora Sur",
		Productos: []NewOrderItem{
			{Nombre: "harina", Cantidad: 10, PrecioUnitario: dec(3)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Realizado {
		t.Errorf("new order should not be confirmed")
	}
	if o.Fecha == "" {
		t.Errorf("expected default fecha")
	}

	o, err = s.ToggleRealizado(ctx, o.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !o.Realizado {
		t.Errorf("expected realizado after toggle")
	}

	o, err = s.ToggleRealizado(ctx, o.ID)
	if err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if o.Realizado {
		t.Errorf("expected not realizado after second toggle")
	}
}

func TestOrderService_EditItem(t *testing.T) {

	s := newTestOrderService(t)
	ctx := context.Background()

	o, err := s.Create(ctx, NewOrder{
		Proveedor: "Distribuidora Sur",
		Productos: []NewOrderItem{
			{Nombre: "harina", Cantidad: 10, PrecioUnitario: dec(3)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	o, err = s.EditItem(ctx, o.ID, o.Productos[0].ID, NewOrderItem{
		Nombre:         "harina integral",
		Cantidad:       5,
		PrecioUnitario: dec(4),
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	item := o.Productos[0]
	if item.Nombre != "harina integral" || item.Cantidad != 5 || !item.PrecioUnitario.Equal(dec(4)) {
		t.Errorf("edit not applied: %+v", item)
	}
}

func TestOrderService_DeleteItemUnknown(t *testing.T) {

	s := newTestOrderService(t)
	ctx := context.Background()

	o, err := s.Create(ctx, NewOrder{Proveedor: "Distribuidora Sur"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = s.DeleteItem(ctx, o.ID, snowflake.ID(12345))
	if !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestOrderService_Wishlist(t *testing.T) {

	s := newTestOrderService(t)
	ctx := context.Background()

	item, err := s.AddDeseado(ctx, "azúcar", 3)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	items, err := s.ListDeseados(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].Nombre != "azúcar" {
		t.Errorf("expected [azúcar], got %v", items)
	}

	if err := s.RemoveDeseado(ctx, item.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := s.RemoveDeseado(ctx, item.ID); !errors.Is(err, domain.ErrWishNotFound) {
		t.Errorf("expected ErrWishNotFound, got %v", err)
	}
}

func TestOrderService_UpdateHeader(t *testing.T) {

	s := newTestOrderService(t)
	ctx := context.Background()

	o, err := s.Create(ctx, NewOrder{
		Proveedor: "Distribuidora Sur",
		Fecha:     "2026-01-10",
		Productos: []NewOrderItem{
			{Nombre: "harina", Cantidad: 10, PrecioUnitario: dec(3)},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	o, err = s.Update(ctx, o.ID, "Distribuidora Norte", "2026-02-01")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if o.Proveedor != "Distribuidora Norte" || o.Fecha != "2026-02-01" {
		t.Errorf("header not updated: %+v", o)
	}
	// los productos no se tocan
	if len(o.Productos) != 1 || o.Productos[0].Nombre != "harina" {
		t.Errorf("items should survive header update: %+v", o.Productos)
	}

	// fecha vacía conserva la actual
	o, err = s.Update(ctx, o.ID, "Distribuidora Norte", "")
	if err != nil {
		t.Fatalf("update sin fecha: %v", err)
	}
	if o.Fecha != "2026-02-01" {
		t.Errorf("empty fecha should keep current, got %s", o.Fecha)
	}

	if _, err := s.Update(ctx, o.ID, "", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty proveedor, got %v", err)
	}
	if _, err := s.Update(ctx, o.ID, "Distribuidora Norte", "ayer"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for bad fecha, got %v", err)
	}
	if _, err := s.Update(ctx, "no-such-id", "Distribuidora Norte", ""); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}
