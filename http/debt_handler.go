package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"

	"tienda-ledger/domain"
	"tienda-ledger/service"
)

type DebtHandler struct {
	service  *service.DebtService
	validate *validator.Validate
}

func NewDebtHandler(service *service.DebtService) *DebtHandler {
	return &DebtHandler{
		service:  service,
		validate: validator.New(),
	}
}

type createDeudaRequest struct {
	Nombre string `json:"nombre" validate:"required,max=120"`
}

type loanItemRequest struct {
	Nombre         string      `json:"nombre" validate:"required,max=120"`
	Cantidad       int         `json:"cantidad" validate:"required,gt=0"`
	PrecioUnitario json.Number `json:"precio_unitario" validate:"required"`
	FechaPrestamo  string      `json:"fecha_prestamo"`
}

type pagoRequest struct {
	Monto json.Number `json:"monto" validate:"required"`
}

type pagoResponse struct {
	Deuda    domain.DebtAccount `json:"deuda"`
	Aplicado string             `json:"monto_aplicado"`
	Sobrante string             `json:"sobrante"`
}

func (h *DebtHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createDeudaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acct, err := h.service.CreateAccount(r.Context(), req.Nombre)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

func (h *DebtHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.ListAccounts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (h *DebtHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.GetAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *DebtHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req loanItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	precio, err := parseDecimal(req.PrecioUnitario)
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.service.AddItem(r.Context(), r.PathValue("id"), service.NewLoanItem{
		Nombre:         req.Nombre,
		Cantidad:       req.Cantidad,
		PrecioUnitario: precio,
		FechaPrestamo:  req.FechaPrestamo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *DebtHandler) EditItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := snowflake.ParseString(r.PathValue("item"))
	if err != nil {
		writeError(w, domain.ErrItemNotFound)
		return
	}

	var req loanItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	precio, err := parseDecimal(req.PrecioUnitario)
	if err != nil {
		writeError(w, err)
		return
	}

	acct, err := h.service.EditItem(r.Context(), r.PathValue("id"), itemID, service.EditLoanItem{
		Nombre:         req.Nombre,
		Cantidad:       req.Cantidad,
		PrecioUnitario: precio,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *DebtHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := snowflake.ParseString(r.PathValue("item"))
	if err != nil {
		writeError(w, domain.ErrItemNotFound)
		return
	}

	acct, err := h.service.DeleteItem(r.Context(), r.PathValue("id"), itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (h *DebtHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req pagoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidAmount)
		return
	}
	monto, err := parseDecimal(req.Monto)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.service.ApplyPayment(r.Context(), r.PathValue("id"), monto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pagoResponse{
		Deuda:    res.Deuda,
		Aplicado: res.Aplicado.String(),
		Sobrante: res.Sobrante.String(),
	})
}

// StreamAccount sirve la suscripción como server-sent events: el estado
// actual y luego cada cambio, hasta que el cliente corta.
func (h *DebtHandler) StreamAccount(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch, err := h.service.WatchAccount(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for acct := range ch {
		buf, err := json.Marshal(acct)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", buf)
		flusher.Flush()
	}
}
