package domain

import "github.com/shopspring/decimal"

// Product es un artículo del catálogo. Imagen es una URL opaca devuelta
// por el servicio de alojamiento de imágenes.
type Product struct {
	ID     string          `json:"id"`
	Nombre string          `json:"nombre"`
	Precio decimal.Decimal `json:"precio"`
	Imagen string          `json:"imagen"`
}
