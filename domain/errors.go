package domain

import "errors"

var (
	ErrInvalidAmount   = errors.New("monto inválido")
	ErrInvalidInput    = errors.New("entrada inválida")
	ErrAccountNotFound = errors.New("deuda no encontrada")
	ErrItemNotFound    = errors.New("producto no encontrado en la deuda")
	ErrProductNotFound = errors.New("producto no encontrado")
	ErrOrderNotFound   = errors.New("pedido no encontrado")
	ErrWishNotFound    = errors.New("producto deseado no encontrado")

	// ErrVersionConflict: la escritura condicional perdió contra otro
	// escritor; el llamador decide si reintenta.
	ErrVersionConflict = errors.New("la deuda fue modificada por otra operación")

	// ErrStoreUnavailable envuelve cualquier falla del almacén remoto.
	ErrStoreUnavailable = errors.New("almacén no disponible")
)
