package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// OrderItem es un renglón de un pedido a proveedor. A diferencia de
// LoanItem no maneja saldo pendiente.
type OrderItem struct {
	ID             snowflake.ID    `json:"id"`
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
}

// Order es un pedido a proveedor. Realizado marca la confirmación de
// entrega.
type Order struct {
	ID        string      `json:"id"`
	Proveedor string      `json:"proveedor"`
	Fecha     string      `json:"fecha"` // YYYY-MM-DD
	Realizado bool        `json:"realizado"`
	Productos []OrderItem `json:"productos"`
	Version   int64       `json:"version"`
}

// WishItem es un producto deseado, pendiente de incluir en un pedido.
type WishItem struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Cantidad int    `json:"cantidad"`
}
