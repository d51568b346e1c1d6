package service

import (
	"context"
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

// NewOrder son los datos para registrar un pedido a proveedor. Fecha vacía
// significa hoy.
type NewOrder struct {
	Proveedor string
	Fecha     string
	Productos []NewOrderItem
}

type NewOrderItem struct {
	Nombre         string
	Cantidad       int
	PrecioUnitario decimal.Decimal
}

type OrderService struct {
	store repository.OrderStore
	wish  repository.WishStore
	node  *snowflake.Node
	log   *logrus.Logger
}

func NewOrderService(store repository.OrderStore,
	wish repository.WishStore,
	node *snowflake.Node,
) *OrderService {
	return &OrderService{
		store: store,
		wish:  wish,
		node:  node,
		log:   config.GetLogger(),
	}
}

func (s *OrderService) Create(ctx context.Context, in NewOrder) (domain.Order, error) {
	proveedor := strings.TrimSpace(in.Proveedor)
	if proveedor == "" {
		return domain.Order{}, fmt.Errorf("%w: proveedor vacío", domain.ErrInvalidInput)
	}
	if len(proveedor) > MaxNombreLength {
		return domain.Order{}, fmt.Errorf("%w: proveedor excede el máximo de %d caracteres", domain.ErrInvalidInput, MaxNombreLength)
	}
	if len(in.Productos) > MaxItemsPerOrder {
		return domain.Order{}, fmt.Errorf("%w: el pedido excede el máximo de %d productos", domain.ErrInvalidInput, MaxItemsPerOrder)
	}

	fecha := strings.TrimSpace(in.Fecha)
	if fecha == "" {
		fecha = time.Now().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", fecha); err != nil {
		return domain.Order{}, fmt.Errorf("%w: fecha inválida, se espera YYYY-MM-DD", domain.ErrInvalidInput)
	}

	items := make([]domain.OrderItem, 0, len(in.Productos))
	for _, it := range in.Productos {
		if err := validateItemFields(it.Nombre, it.Cantidad, it.PrecioUnitario); err != nil {
			return domain.Order{}, err
		}
		items = append(items, domain.OrderItem{
			ID:             s.node.Generate(),
			Nombre:         strings.TrimSpace(it.Nombre),
			Cantidad:       it.Cantidad,
			PrecioUnitario: it.PrecioUnitario,
		})
	}

	o, err := s.store.CreateOrder(ctx, domain.Order{
		Proveedor: proveedor,
		Fecha:     fecha,
		Realizado: false,
		Productos: items,
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.log.WithFields(logrus.Fields{"pedido": o.ID, "proveedor": proveedor}).Info("pedido creado")
	return o, nil
}

// Update reemplaza proveedor y fecha del pedido. Fecha vacía conserva la
// fecha actual. Los productos del pedido no se tocan.
func (s *OrderService) Update(ctx context.Context, id, proveedor, fecha string) (domain.Order, error) {
	proveedor = strings.TrimSpace(proveedor)
	if proveedor == "" {
		return domain.Order{}, fmt.Errorf("%w: proveedor vacío", domain.ErrInvalidInput)
	}
	if len(proveedor) > MaxNombreLength {
		return domain.Order{}, fmt.Errorf("%w: proveedor excede el máximo de %d caracteres", domain.ErrInvalidInput, MaxNombreLength)
	}

	fecha = strings.TrimSpace(fecha)
	if fecha != "" {
		if _, err := time.Parse("2006-01-02", fecha); err != nil {
			return domain.Order{}, fmt.Errorf("%w: fecha inválida, se espera YYYY-MM-DD", domain.ErrInvalidInput)
		}
	}

	return s.updateWithRetry(ctx, id, "editar pedido", func(o *domain.Order) error {
		o.Proveedor = proveedor
		if fecha != "" {
			o.Fecha = fecha
		}
		return nil
	})
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.log.WithField("pedido", id).Info("pedido eliminado")
	return nil
}

// ToggleRealizado invierte la confirmación de entrega del pedido.
func (s *OrderService) ToggleRealizado(ctx context.Context, id string) (domain.Order, error) {
	return s.updateWithRetry(ctx, id, "confirmar entrega", func(o *domain.Order) error {
		o.Realizado = !o.Realizado
		return nil
	})
}

func (s *OrderService) AddItem(ctx context.Context, id string, in NewOrderItem) (domain.Order, error) {
	if err := validateItemFields(in.Nombre, in.Cantidad, in.PrecioUnitario); err != nil {
		return domain.Order{}, err
	}

	return s.updateWithRetry(ctx, id, "agregar producto", func(o *domain.Order) error {
		if len(o.Productos) >= MaxItemsPerOrder {
			return fmt.Errorf("%w: el pedido excede el máximo de %d productos", domain.ErrInvalidInput, MaxItemsPerOrder)
		}
		o.Productos = append(o.Productos, domain.OrderItem{
			ID:             s.node.Generate(),
			Nombre:         strings.TrimSpace(in.Nombre),
			Cantidad:       in.Cantidad,
			PrecioUnitario: in.PrecioUnitario,
		})
		return nil
	})
}

func (s *OrderService) EditItem(ctx context.Context, id string, itemID snowflake.ID, in NewOrderItem) (domain.Order, error) {
	if err := validateItemFields(in.Nombre, in.Cantidad, in.PrecioUnitario); err != nil {
		return domain.Order{}, err
	}

	return s.updateWithRetry(ctx, id, "editar producto", func(o *domain.Order) error {
		for i := range o.Productos {
			if o.Productos[i].ID == itemID {
				o.Productos[i].Nombre = strings.TrimSpace(in.Nombre)
				o.Productos[i].Cantidad = in.Cantidad
				o.Productos[i].PrecioUnitario = in.PrecioUnitario
				return nil
			}
		}
		return domain.ErrItemNotFound
	})
}

func (s *OrderService) DeleteItem(ctx context.Context, id string, itemID snowflake.ID) (domain.Order, error) {
	return s.updateWithRetry(ctx, id, "eliminar producto", func(o *domain.Order) error {
		kept := o.Productos[:0]
		found := false
		for _, item := range o.Productos {
			if item.ID == itemID {
				found = true
				continue
			}
			kept = append(kept, item)
		}
		if !found {
			return domain.ErrItemNotFound
		}
		o.Productos = kept
		return nil
	})
}

// Wishlist de productos deseados, independiente de los pedidos.

func (s *OrderService) ListDeseados(ctx context.Context) ([]domain.WishItem, error) {
	return s.wish.ListWishItems(ctx)
}

func (s *OrderService) AddDeseado(ctx context.Context, nombre string, cantidad int) (domain.WishItem, error) {
	nombre = strings.TrimSpace(nombre)
	if nombre == "" {
		return domain.WishItem{}, fmt.Errorf("%w: nombre de producto vacío", domain.ErrInvalidInput)
	}
	if cantidad <= 0 {
		return domain.WishItem{}, fmt.Errorf("%w: cantidad inválida", domain.ErrInvalidInput)
	}
	return s.wish.AddWishItem(ctx, domain.WishItem{Nombre: nombre, Cantidad: cantidad})
}

func (s *OrderService) RemoveDeseado(ctx context.Context, id string) error {
	return s.wish.RemoveWishItem(ctx, id)
}

func (s *OrderService) updateWithRetry(ctx context.Context, id, op string, mutate func(*domain.Order) error) (domain.Order, error) {
	for intento := 0; ; intento++ {
		o, err := s.store.GetOrder(ctx, id)
		if err != nil {
			return domain.Order{}, err
		}
		if err := mutate(&o); err != nil {
			return domain.Order{}, err
		}

		updated, err := s.store.UpdateOrder(ctx, o)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.Order{}, err
		}
		if intento >= MaxUpdateRetries {
			s.log.WithFields(logrus.Fields{"pedido": id, "op": op}).Error("conflicto de versión persistente")
			return domain.Order{}, err
		}
		s.log.WithFields(logrus.Fields{"pedido": id, "op": op, "intento": intento + 1}).Warn("conflicto de versión, reintentando")
	}
}
