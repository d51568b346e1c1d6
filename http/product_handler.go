package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"tienda-ledger/service"
)

type ProductHandler struct {
	service  *service.ProductService
	validate *validator.Validate
}

func NewProductHandler(service *service.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validator.New(),
	}
}

type productoRequest struct {
	Nombre string      `json:"nombre" validate:"required,max=120"`
	Precio json.Number `json:"precio" validate:"required"`
	Imagen string      `json:"imagen" validate:"required,url"`
}

func (h *ProductHandler) decodeProducto(r *http.Request) (service.NewProduct, error) {
	var req productoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return service.NewProduct{}, err
	}
	if err := h.validate.Struct(req); err != nil {
		return service.NewProduct{}, err
	}
	precio, err := parseDecimal(req.Precio)
	if err != nil {
		return service.NewProduct{}, err
	}
	return service.NewProduct{
		Nombre: req.Nombre,
		Precio: precio,
		Imagen: req.Imagen,
	}, nil
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeProducto(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	in, err := h.decodeProducto(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
