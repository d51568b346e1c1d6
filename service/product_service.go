package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"tienda-ledger/config"
	"tienda-ledger/domain"
	"tienda-ledger/repository"
)

// NewProduct son los datos para dar de alta un artículo del catálogo.
// Imagen es la URL que devolvió el servicio de alojamiento; aquí es un
// string opaco.
type NewProduct struct {
	Nombre string
	Precio decimal.Decimal
	Imagen string
}

type ProductService struct {
	store repository.ProductStore
	log   *logrus.Logger
}

func NewProductService(store repository.ProductStore) *ProductService {
	return &ProductService{
		store: store,
		log:   config.GetLogger(),
	}
}

func (s *ProductService) Create(ctx context.Context, in NewProduct) (domain.Product, error) {
	if err := validateProductFields(in); err != nil {
		return domain.Product{}, err
	}

	p, err := s.store.CreateProduct(ctx, domain.Product{
		Nombre: strings.TrimSpace(in.Nombre),
		Precio: in.Precio,
		Imagen: strings.TrimSpace(in.Imagen),
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.log.WithFields(logrus.Fields{"producto": p.ID, "nombre": p.Nombre}).Info("producto creado")
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

// List devuelve el catálogo; con q filtra por nombre sin distinguir
// mayúsculas.
func (s *ProductService) List(ctx context.Context, q string) ([]domain.Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return products, nil
	}

	filtered := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Nombre), q) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Update reemplaza los datos del producto. No toca los renglones de deuda
// existentes: esos llevan su propia copia de nombre y precio.
func (s *ProductService) Update(ctx context.Context, id string, in NewProduct) (domain.Product, error) {
	if err := validateProductFields(in); err != nil {
		return domain.Product{}, err
	}

	return s.store.UpdateProduct(ctx, domain.Product{
		ID:     id,
		Nombre: strings.TrimSpace(in.Nombre),
		Precio: in.Precio,
		Imagen: strings.TrimSpace(in.Imagen),
	})
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.log.WithField("producto", id).Info("producto eliminado")
	return nil
}

func validateProductFields(in NewProduct) error {
	if strings.TrimSpace(in.Nombre) == "" {
		return fmt.Errorf("%w: nombre de producto vacío", domain.ErrInvalidInput)
	}
	if len(in.Nombre) > MaxNombreLength {
		return fmt.Errorf("%w: nombre excede el máximo de %d caracteres", domain.ErrInvalidInput, MaxNombreLength)
	}
	if in.Precio.IsNegative() {
		return fmt.Errorf("%w: precio inválido", domain.ErrInvalidInput)
	}
	if in.Precio.GreaterThan(MaxPrecio) {
		return fmt.Errorf("%w: precio excede el máximo de $%s", domain.ErrInvalidInput, MaxPrecio)
	}
	if strings.TrimSpace(in.Imagen) == "" {
		return fmt.Errorf("%w: imagen obligatoria", domain.ErrInvalidInput)
	}
	return nil
}
