package service

import "github.com/shopspring/decimal"

const (
	MaxNombreLength    = 120 // nombres de clientes, productos y proveedores
	MaxCantidad        = 10_000
	MaxItemsPerAccount = 500 // renglones por deuda
	MaxItemsPerOrder   = 200

	// Reintentos ante conflicto de versión antes de rendirse
	MaxUpdateRetries = 3
)

var (
	MaxPrecio = decimal.NewFromInt(1_000_000)   // por unidad
	MaxMonto  = decimal.NewFromInt(100_000_000) // 100 millones por pago
)
