package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"tienda-ledger/domain"
	"tienda-ledger/repository"
	"tienda-ledger/service"
)

func newTestOrderHandler(t *testing.T) (*OrderHandler, *service.OrderService) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	store := repository.NewMemoryStore(node)
	svc := service.NewOrderService(store, store, node)
	return NewOrderHandler(svc), svc
}

func seedHandlerOrder(t *testing.T, svc *service.OrderService) domain.Order {
	t.Helper()

	o, err := svc.Create(context.Background(), service.NewOrder{
		Proveedor: "Distribuidora Sur",
		Fecha:     "2026-01-10",
		Productos: []service.NewOrderItem{
			{Nombre: "harina", Cantidad: 10, PrecioUnitario: decimal.NewFromInt(3)},
		},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return o
}

func TestUpdatePedidoHandler_OK(t *testing.T) {

	handler, svc := newTestOrderHandler(t)
	o := seedHandlerOrder(t, svc)

	body := []byte(`{"proveedor": "Distribuidora Norte", "fecha": "2026-02-01"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/"+o.ID, bytes.NewBuffer(body))
	req.SetPathValue("id", o.ID)
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var got domain.Order
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Proveedor != "Distribuidora Norte" || got.Fecha != "2026-02-01" {
		t.Errorf("header not updated: %+v", got)
	}
	if len(got.Productos) != 1 {
		t.Errorf("items should survive header update: %+v", got.Productos)
	}
}

func TestUpdatePedidoHandler_NotFound(t *testing.T) {

	handler, _ := newTestOrderHandler(t)

	body := []byte(`{"proveedor": "Distribuidora Norte"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/nope", bytes.NewBuffer(body))
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestUpdatePedidoHandler_MissingProveedor(t *testing.T) {

	handler, svc := newTestOrderHandler(t)
	o := seedHandlerOrder(t, svc)

	body := []byte(`{"fecha": "2026-02-01"}`)
	req := httptest.NewRequest(http.MethodPut, "/pedidos/"+o.ID, bytes.NewBuffer(body))
	req.SetPathValue("id", o.ID)
	w := httptest.NewRecorder()

	handler.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
