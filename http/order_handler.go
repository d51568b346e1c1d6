package http

import (
	"encoding/json"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"

	"tienda-ledger/domain"
	"tienda-ledger/service"
)

type OrderHandler struct {
	service  *service.OrderService
	validate *validator.Validate
}

func NewOrderHandler(service *service.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

type orderItemRequest struct {
	Nombre         string      `json:"nombre" validate:"required,max=120"`
	Cantidad       int         `json:"cantidad" validate:"required,gt=0"`
	PrecioUnitario json.Number `json:"precio_unitario" validate:"required"`
}

type createPedidoRequest struct {
	Proveedor string             `json:"proveedor" validate:"required,max=120"`
	Fecha     string             `json:"fecha"`
	Productos []orderItemRequest `json:"productos" validate:"omitempty,dive"`
}

type updatePedidoRequest struct {
	Proveedor string `json:"proveedor" validate:"required,max=120"`
	Fecha     string `json:"fecha"`
}

type deseadoRequest struct {
	Nombre   string `json:"nombre" validate:"required,max=120"`
	Cantidad int    `json:"cantidad" validate:"required,gt=0"`
}

func toNewOrderItem(req orderItemRequest) (service.NewOrderItem, error) {
	precio, err := parseDecimal(req.PrecioUnitario)
	if err != nil {
		return service.NewOrderItem{}, err
	}
	return service.NewOrderItem{
		Nombre:         req.Nombre,
		Cantidad:       req.Cantidad,
		PrecioUnitario: precio,
	}, nil
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPedidoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	items := make([]service.NewOrderItem, 0, len(req.Productos))
	for _, it := range req.Productos {
		item, err := toNewOrderItem(it)
		if err != nil {
			writeError(w, err)
			return
		}
		items = append(items, item)
	}

	o, err := h.service.Create(r.Context(), service.NewOrder{
		Proveedor: req.Proveedor,
		Fecha:     req.Fecha,
		Productos: items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePedidoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.service.Update(r.Context(), r.PathValue("id"), req.Proveedor, req.Fecha)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) ToggleRealizado(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.ToggleRealizado(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req orderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, err := toNewOrderItem(req)
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.service.AddItem(r.Context(), r.PathValue("id"), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := snowflake.ParseString(r.PathValue("item"))
	if err != nil {
		writeError(w, domain.ErrItemNotFound)
		return
	}

	var req orderItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	item, err := toNewOrderItem(req)
	if err != nil {
		writeError(w, err)
		return
	}

	o, err := h.service.EditItem(r.Context(), r.PathValue("id"), itemID, item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := snowflake.ParseString(r.PathValue("item"))
	if err != nil {
		writeError(w, domain.ErrItemNotFound)
		return
	}

	o, err := h.service.DeleteItem(r.Context(), r.PathValue("id"), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) ListDeseados(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListDeseados(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) AddDeseado(w http.ResponseWriter, r *http.Request) {
	var req deseadoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.service.AddDeseado(r.Context(), req.Nombre, req.Cantidad)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *OrderHandler) RemoveDeseado(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveDeseado(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
