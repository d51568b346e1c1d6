package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tienda-ledger/config"
	"tienda-ledger/domain"
	"tienda-ledger/repository"
)

const accountsCacheKey = "deudas:resumen"

// NewLoanItem son los datos para prestar un producto a un cliente.
// FechaPrestamo es opcional; vacía significa hoy.
type NewLoanItem struct {
	Nombre         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
	FechaPrestamo  string
}

// EditLoanItem reemplaza nombre, cantidad y precio de un renglón. El saldo
// pendiente se recalcula desde cero como cantidad × precio, descartando
// cualquier pago parcial previo sobre ese renglón.
type EditLoanItem struct {
	Nombre         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
}

// PagoResult acompaña la deuda actualizada con lo aplicado y el exceso
// descartado.
type PagoResult struct {
	Deuda    domain.DebtAccount
	Aplicado decimal.Decimal
	Sobrante decimal.Decimal
}

type DebtService struct {
	store repository.DebtStore
	cache repository.CacheRepository
	node  *snowflake.Node
	log   *logrus.Logger
}

func NewDebtService(store repository.DebtStore,
	cache repository.CacheRepository,
	node *snowflake.Node,
) *DebtService {
	return &DebtService{
		store: store,
		cache: cache,
		node:  node,
		log:   config.GetLogger(),
	}
}

// CreateAccount abre una deuda vacía para un cliente.
func (s *DebtService) CreateAccount(ctx context.Context, nombre string) (domain.DebtAccount, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return domain.DebtAccount{}, fmt.Errorf("%w: nombre de cliente vacío", domain.ErrInvalidInput)
	}
	if len(nombre) > MaxNombreLength {
		return domain.DebtAccount{}, fmt.Errorf("%w: nombre excede el máximo de %d caracteres", domain.ErrInvalidInput, MaxNombreLength)
	}

	acct, err := s.store.CreateAccount(ctx, nombre)
	if err != nil {
		return domain.DebtAccount{}, err
	}
	s.cache.Delete(accountsCacheKey)

	s.log.WithFields(logrus.Fields{"deuda": acct.ID, "cliente": nombre}).Info("deuda creada")
	return acct, nil
}

func (s *DebtService) GetAccount(ctx context.Context, id string) (domain.DebtAccount, error) {
	return s.store.GetAccount(ctx, id)
}

// ListAccounts devuelve el resumen de todas las deudas, sirviendo desde la
// caché cuando está fresca.
func (s *DebtService) ListAccounts(ctx context.Context) ([]domain.AccountSummary, error) {
	if raw, ok := s.cache.Get(accountsCacheKey); ok {
		var cached []domain.AccountSummary
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return cached, nil
		}
	}

	accounts, err := s.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.AccountSummary, 0, len(accounts))
	for _, acct := range accounts {
		summaries = append(summaries, domain.AccountSummary{
			ID:         acct.ID,
			Nombre:     acct.Nombre,
			TotalDeuda: acct.TotalDeuda,
		})
	}

	if buf, err := json.Marshal(summaries); err == nil {
		if err := s.cache.Set(accountsCacheKey, string(buf)); err != nil {
			s.log.WithField("key", accountsCacheKey).Warnf("no se pudo cachear el resumen: %v", err)
		}
	}
	return summaries, nil
}

// AddItem presta un producto: agrega un renglón con saldo cantidad × precio.
func (s *DebtService) AddItem(ctx context.Context, id string, in NewLoanItem) (domain.DebtAccount, error) {
	if err := validateItemFields(in.Nombre, in.Cantidad, in.PrecioUnitario); err != nil {
		return domain.DebtAccount{}, err
	}

	fecha := strings.TrimSpace(in.FechaPrestamo)
	if fecha == "" {
		fecha = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", fecha); err != nil {
		return domain.DebtAccount{}, fmt.Errorf("%w: fecha de préstamo inválida, se espera YYYY-MM-DD", domain.ErrInvalidInput)
	}

	return s.updateWithRetry(ctx, id, "agregar producto", func(acct *domain.DebtAccount) error {
		if len(acct.Productos) >= MaxItemsPerAccount {
			return fmt.Errorf("%w: la deuda excede el máximo de %d productos", domain.ErrInvalidInput, MaxItemsPerAccount)
		}
		item := domain.LoanItem{
			ID:             s.node.Generate(),
			Nombre:         strings.TrimSpace(in.Nombre),
			Cantidad:       in.Cantidad,
			PrecioUnitario: in.PrecioUnitario,
			Total:          in.PrecioUnitario.Mul(decimal.NewFromInt(int64(in.Cantidad))),
			FechaPrestamo:  fecha,
		}
		acct.Productos = append(acct.Productos, item)
		SortItems(acct.Productos)
		acct.TotalDeuda = SumOutstanding(acct.Productos)
		return nil
	})
}

// EditItem reemplaza los datos de un renglón y recalcula saldos.
func (s *DebtService) EditItem(ctx context.Context, id string, itemID snowflake.ID, in EditLoanItem) (domain.DebtAccount, error) {
	if err := validateItemFields(in.Nombre, in.Cantidad, in.PrecioUnitario); err != nil {
		return domain.DebtAccount{}, err
	}

	return s.updateWithRetry(ctx, id, "editar producto", func(acct *domain.DebtAccount) error {
		idx := -1
		for i := range acct.Productos {
			if acct.Productos[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.ErrItemNotFound
		}
		item := &acct.Productos[idx]
		item.Nombre = strings.TrimSpace(in.Nombre)
		item.Cantidad = in.Cantidad
		item.PrecioUnitario = in.PrecioUnitario
		item.Total = in.PrecioUnitario.Mul(decimal.NewFromInt(int64(in.Cantidad)))
		acct.TotalDeuda = SumOutstanding(acct.Productos)
		return nil
	})
}

// DeleteItem quita un renglón y recalcula el total.
func (s *DebtService) DeleteItem(ctx context.Context, id string, itemID snowflake.ID) (domain.DebtAccount, error) {
	return s.updateWithRetry(ctx, id, "eliminar producto", func(acct *domain.DebtAccount) error {
		kept := acct.Productos[:0]
		found := false
		for _, item := range acct.Productos {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return domain.ErrItemNotFound
		}
		acct.Productos = kept
		acct.TotalDeuda = SumOutstanding(acct.Productos)
		return nil
	})
}

// ApplyPayment distribuye un pago sobre la deuda, del préstamo más viejo al
// más nuevo. Un pago mayor que el total la salda completa; el exceso se
// informa pero no se guarda como crédito.
func (s *DebtService) ApplyPayment(ctx context.Context, id string, monto decimal.Decimal) (PagoResult, error) {
	var res PaymentResult
	updated, err := s.updateWithRetry(ctx, id, "aplicar pago", func(acct *domain.DebtAccount) error {
		SortItems(acct.Productos)
		r, err := AllocatePayment(acct.Productos, monto)
		if err != nil {
			return err
		}
		res = r
		acct.Productos = r.Productos
		acct.TotalDeuda = r.TotalDeuda
		return nil
	})
	if err != nil {
		return PagoResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"deuda":    id,
		"aplicado": res.Aplicado,
		"sobrante": res.Sobrante,
	}).Info("pago aplicado")

	return PagoResult{Deuda: updated, Aplicado: res.Aplicado, Sobrante: res.Sobrante}, nil
}

// WatchAccount expone la suscripción del almacén: estado actual más cambios.
func (s *DebtService) WatchAccount(ctx context.Context, id string) (<-chan domain.DebtAccount, error) {
	return s.store.WatchAccount(ctx, id)
}

// updateWithRetry es el ciclo leer-modificar-escribir condicional: carga la
// deuda, aplica la mutación en memoria y escribe comparando versiones.
// Ante un conflicto vuelve a cargar y reintenta un número acotado de veces.
// Si la mutación falla no se escribe nada.
func (s *DebtService) updateWithRetry(ctx context.Context, id, op string, mutate func(*domain.DebtAccount) error) (domain.DebtAccount, error) {
	for intento := 0; ; intento++ {
		acct, err := s.store.GetAccount(ctx, id)
		if err != nil {
			return domain.DebtAccount{}, err
		}
		if err := mutate(&acct); err != nil {
			return domain.DebtAccount{}, err
		}

		updated, err := s.store.UpdateAccount(ctx, acct)
		if err == nil {
			s.cache.Delete(accountsCacheKey)
			return updated, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.DebtAccount{}, err
		}
		if intento >= MaxUpdateRetries {
			s.log.WithFields(logrus.Fields{"deuda": id, "op": op}).Error("conflicto de versión persistente")
			return domain.DebtAccount{}, err
		}
		s.log.WithFields(logrus.Fields{"deuda": id, "op": op, "intento": intento + 1}).Warn("conflicto de versión, reintentando")
	}
}

func validateItemFields(nombre string, cantidad int, precio decimal.Decimal) error {
	if strings.TrimSpace(nombre) == "" {
		return fmt.Errorf("%w: nombre de producto vacío", domain.ErrInvalidInput)
	}
	if len(nombre) > MaxNombreLength {
		return fmt.Errorf("%w: nombre excede el máximo de %d caracteres", domain.ErrInvalidInput, MaxNombreLength)
	}
	if cantidad <= 0 {
		return fmt.Errorf("%w: cantidad inválida", domain.ErrInvalidInput)
	}
	if cantidad > MaxCantidad {
		return fmt.Errorf("%w: cantidad excede el máximo de %d", domain.ErrInvalidInput, MaxCantidad)
	}
	if precio.IsNegative() {
		return fmt.Errorf("%w: precio inválido", domain.ErrInvalidInput)
	}
	if precio.GreaterThan(MaxPrecio) {
		return fmt.Errorf("%w: precio excede el máximo de $%s", domain.ErrInvalidInput, MaxPrecio)
	}
	return nil
}
