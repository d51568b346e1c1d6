package service

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"tienda-ledger/domain"
)

// PaymentResult es el estado de la deuda después de aplicar un pago.
// Sobrante queda informativo: un pago mayor que la deuda la salda completa
// y el exceso no se registra como crédito.
type PaymentResult struct {
	Productos  []domain.LoanItem
	TotalDeuda decimal.Decimal
	Aplicado   decimal.Decimal
	Sobrante   decimal.Decimal
}

// AllocatePayment distribuye un pago entre los renglones de la deuda, en el
// orden dado: salda cada renglón completo mientras alcance y reduce
// parcialmente el primero que no alcanza. Los renglones saldados se
// descartan y el total se recalcula desde los sobrevivientes. Es una
// función pura: no toca el slice de entrada.
func AllocatePayment(items []domain.LoanItem, monto decimal.Decimal) (PaymentResult, error) {
	if !monto.IsPositive() {
		return PaymentResult{}, domain.ErrInvalidAmount
	}
	if monto.GreaterThan(MaxMonto) {
		return PaymentResult{}, fmt.Errorf("%w: excede el máximo de $%s", domain.ErrInvalidAmount, MaxMonto)
	}

	restante := monto
	survivors := make([]domain.LoanItem, 0, len(items))
	for _, item := range items {
		if restante.IsPositive() {
			if restante.GreaterThanOrEqual(item.Total) {
				restante = restante.Sub(item.Total)
				item.Total = decimal.Zero
			} else {
				item.Total = item.Total.Sub(restante)
				restante = decimal.Zero
			}
		}
		if item.Total.IsPositive() {
			survivors = append(survivors, item)
		}
	}

	return PaymentResult{
		Productos:  survivors,
		TotalDeuda: SumOutstanding(survivors),
		Aplicado:   monto.Sub(restante),
		Sobrante:   restante,
	}, nil
}

// SumOutstanding suma los saldos pendientes de los renglones.
func SumOutstanding(items []domain.LoanItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}

// SortItems ordena los renglones por fecha de préstamo ascendente, con el ID
// (derivado del instante de creación) como desempate. Así los pagos se
// aplican primero a la deuda más vieja, sin depender del orden en que el
// almacén devuelva los renglones.
func SortItems(items []domain.LoanItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].FechaPrestamo != items[j].FechaPrestamo {
			return items[i].FechaPrestamo < items[j].FechaPrestamo
		}
		return items[i].ID < items[j].ID
	})
}
