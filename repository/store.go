package repository

import (
	"context"

	"tienda-ledger/domain"
)

// DebtStore persiste las deudas en un almacén jerárquico. UpdateAccount es
// una escritura condicional: compara la Version recibida con la almacenada
// y devuelve domain.ErrVersionConflict si otro escritor ganó; en caso de
// éxito devuelve la cuenta guardada con la versión incrementada.
type DebtStore interface {
	CreateAccount(ctx context.Context, nombre string) (domain.DebtAccount, error)
	GetAccount(ctx context.Context, id string) (domain.DebtAccount, error)
	ListAccounts(ctx context.Context) ([]domain.DebtAccount, error)
	UpdateAccount(ctx context.Context, acct domain.DebtAccount) (domain.DebtAccount, error)

	// WatchAccount entrega el estado actual de la deuda seguido de cada
	// cambio posterior. El canal se cierra cuando el contexto termina.
	WatchAccount(ctx context.Context, id string) (<-chan domain.DebtAccount, error)
}

type ProductStore interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// OrderStore sigue el mismo contrato condicional que DebtStore para
// UpdateOrder.
type OrderStore interface {
	CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, o domain.Order) (domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

type WishStore interface {
	AddWishItem(ctx context.Context, item domain.WishItem) (domain.WishItem, error)
	ListWishItems(ctx context.Context) ([]domain.WishItem, error)
	RemoveWishItem(ctx context.Context, id string) error
}
