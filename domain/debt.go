package domain

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// LoanItem es un producto prestado dentro de una deuda. Total es el saldo
// pendiente del renglón: arranca en Cantidad × PrecioUnitario y solo baja
// con pagos, nunca por debajo de cero.
type LoanItem struct {
	ID             snowflake.ID    `json:"id_producto"`
	Nombre         string          `json:"nombre"`
	Cantidad       int             `json:"cantidad"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Total          decimal.Decimal `json:"total"`
	FechaPrestamo  string          `json:"fecha_prestamo"` // YYYY-MM-DD
}

// DebtAccount es la deuda acumulada de un cliente. TotalDeuda debe ser
// siempre la suma de los Total de sus productos; Version respalda las
// escrituras condicionales del almacén.
type DebtAccount struct {
	ID         string          `json:"id"`
	Nombre     string          `json:"nombre"`
	TotalDeuda decimal.Decimal `json:"total_deuda"`
	Productos  []LoanItem      `json:"productos"`
	Version    int64           `json:"version"`
}

// AccountSummary es la vista de listado: sin renglones.
type AccountSummary struct {
	ID         string          `json:"id"`
	Nombre     string          `json:"nombre"`
	TotalDeuda decimal.Decimal `json:"total_deuda"`
}
