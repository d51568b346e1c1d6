package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"tienda-ledger/domain"
)

// Distribución de claves: un blob JSON por entidad más un set índice por
// colección. Los cambios de deudas se publican en un canal por cuenta.
const (
	deudaKeyPrefix    = "deudas:"
	deudaIndexKey     = "deudas:index"
	deudaChanPrefix   = "deudas.events:"
	productoKeyPrefix = "productos:"
	productoIndexKey  = "productos:index"
	pedidoKeyPrefix   = "pedidos:"
	pedidoIndexKey    = "pedidos:index"
	deseadoKeyPrefix  = "deseados:"
	deseadoIndexKey   = "deseados:index"
)

// RedisStore implementa los almacenes sobre Redis. Las escrituras de deudas
// y pedidos son condicionales: WATCH sobre la clave de la entidad y
// comparación del campo version antes de escribir.
type RedisStore struct {
	client *redis.Client
	node   *snowflake.Node
}

func NewRedisStore(client *redis.Client, node *snowflake.Node) *RedisStore {
	return &RedisStore{client: client, node: node}
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (r *RedisStore) pushKey() string {
	return r.node.Generate().String()
}

// getJSON lee y decodifica un blob; notFound se devuelve tal cual ante
// redis.Nil.
func getJSON(ctx context.Context, client *redis.Client, key string, dst any, notFound error) error {
	raw, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return notFound
	}
	if err != nil {
		return storeErr(err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return storeErr(err)
	}
	return nil
}

// listJSON junta todos los blobs de un índice, ignorando entradas huérfanas.
func listJSON[T any](ctx context.Context, client *redis.Client, indexKey, prefix string) ([]T, error) {
	ids, err := client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = prefix + id
	}
	raws, err := client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr(err)
	}

	out := make([]T, 0, len(raws))
	for _, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *RedisStore) putJSON(ctx context.Context, key, indexKey string, id string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return storeErr(err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, buf, 0)
		pipe.SAdd(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *RedisStore) dropJSON(ctx context.Context, key, indexKey, id string, notFound error) error {
	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return storeErr(err)
	}
	if n == 0 {
		return notFound
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, indexKey, id)
		return nil
	})
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *RedisStore) publishAccount(ctx context.Context, acct domain.DebtAccount) {
	buf, err := json.Marshal(acct)
	if err != nil {
		return
	}
	// mejor esfuerzo: un publish perdido no afecta el estado guardado
	r.client.Publish(ctx, deudaChanPrefix+acct.ID, buf)
}

func (r *RedisStore) CreateAccount(ctx context.Context, nombre string) (domain.DebtAccount, error) {
	acct := domain.DebtAccount{
		ID:         r.pushKey(),
		Nombre:     nombre,
		TotalDeuda: decimal.Zero,
		Productos:  []domain.LoanItem{},
		Version:    1,
	}
	if err := r.putJSON(ctx, deudaKeyPrefix+acct.ID, deudaIndexKey, acct.ID, acct); err != nil {
		return domain.DebtAccount{}, err
	}
	r.publishAccount(ctx, acct)
	return acct, nil
}

func (r *RedisStore) GetAccount(ctx context.Context, id string) (domain.DebtAccount, error) {
	var acct domain.DebtAccount
	if err := getJSON(ctx, r.client, deudaKeyPrefix+id, &acct, domain.ErrAccountNotFound); err != nil {
		return domain.DebtAccount{}, err
	}
	return acct, nil
}

func (r *RedisStore) ListAccounts(ctx context.Context) ([]domain.DebtAccount, error) {
	out, err := listJSON[domain.DebtAccount](ctx, r.client, deudaIndexKey, deudaKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStore) UpdateAccount(ctx context.Context, acct domain.DebtAccount) (domain.DebtAccount, error) {
	key := deudaKeyPrefix + acct.ID

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrAccountNotFound
		}
		if err != nil {
			return storeErr(err)
		}

		var stored domain.DebtAccount
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return storeErr(err)
		}
		if stored.Version != acct.Version {
			return domain.ErrVersionConflict
		}

		acct.Version++
		buf, err := json.Marshal(acct)
		if err != nil {
			return storeErr(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		// alguien tocó la clave entre WATCH y EXEC
		return domain.DebtAccount{}, domain.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.DebtAccount{}, err
		}
		return domain.DebtAccount{}, storeErr(err)
	}

	r.publishAccount(ctx, acct)
	return acct, nil
}

func (r *RedisStore) WatchAccount(ctx context.Context, id string) (<-chan domain.DebtAccount, error) {
	pubsub := r.client.Subscribe(ctx, deudaChanPrefix+id)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, storeErr(err)
	}

	// La instantánea se lee con la suscripción ya confirmada: toda escritura
	// posterior llega por el canal y las versiones entregadas nunca
	// retroceden.
	current, err := r.GetAccount(ctx, id)
	if err != nil {
		pubsub.Close()
		return nil, err
	}

	ch := make(chan domain.DebtAccount, watchBuffer)
	ch <- current

	go func() {
		defer close(ch)
		defer pubsub.Close()
		lastVersion := current.Version
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-pubsub.Channel():
				if !ok {
					return
				}
				var acct domain.DebtAccount
				if err := json.Unmarshal([]byte(msg.Payload), &acct); err != nil {
					continue
				}
				if acct.Version <= lastVersion {
					continue
				}
				lastVersion = acct.Version
				select {
				case ch <- acct:
				default:
				}
			}
		}
	}()

	return ch, nil
}

func (r *RedisStore) CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	p.ID = r.pushKey()
	if err := r.putJSON(ctx, productoKeyPrefix+p.ID, productoIndexKey, p.ID, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *RedisStore) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	if err := getJSON(ctx, r.client, productoKeyPrefix+id, &p, domain.ErrProductNotFound); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *RedisStore) ListProducts(ctx context.Context) ([]domain.Product, error) {
	out, err := listJSON[domain.Product](ctx, r.client, productoIndexKey, productoKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStore) UpdateProduct(ctx context.Context, p domain.Product) (domain.Product, error) {
	if _, err := r.GetProduct(ctx, p.ID); err != nil {
		return domain.Product{}, err
	}
	if err := r.putJSON(ctx, productoKeyPrefix+p.ID, productoIndexKey, p.ID, p); err != nil {
		return domain.Product{}, err
	}
	return p, nil
}

func (r *RedisStore) DeleteProduct(ctx context.Context, id string) error {
	return r.dropJSON(ctx, productoKeyPrefix+id, productoIndexKey, id, domain.ErrProductNotFound)
}

func (r *RedisStore) CreateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	o.ID = r.pushKey()
	o.Version = 1
	if err := r.putJSON(ctx, pedidoKeyPrefix+o.ID, pedidoIndexKey, o.ID, o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *RedisStore) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var o domain.Order
	if err := getJSON(ctx, r.client, pedidoKeyPrefix+id, &o, domain.ErrOrderNotFound); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *RedisStore) ListOrders(ctx context.Context) ([]domain.Order, error) {
	out, err := listJSON[domain.Order](ctx, r.client, pedidoIndexKey, pedidoKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStore) UpdateOrder(ctx context.Context, o domain.Order) (domain.Order, error) {
	key := pedidoKeyPrefix + o.ID

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return storeErr(err)
		}

		var stored domain.Order
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return storeErr(err)
		}
		if stored.Version != o.Version {
			return domain.ErrVersionConflict
		}

		o.Version++
		buf, err := json.Marshal(o)
		if err != nil {
			return storeErr(err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, buf, 0)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return domain.Order{}, domain.ErrVersionConflict
	}
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) || errors.Is(err, domain.ErrVersionConflict) || errors.Is(err, domain.ErrStoreUnavailable) {
			return domain.Order{}, err
		}
		return domain.Order{}, storeErr(err)
	}
	return o, nil
}

func (r *RedisStore) DeleteOrder(ctx context.Context, id string) error {
	return r.dropJSON(ctx, pedidoKeyPrefix+id, pedidoIndexKey, id, domain.ErrOrderNotFound)
}

func (r *RedisStore) AddWishItem(ctx context.Context, item domain.WishItem) (domain.WishItem, error) {
	item.ID = r.pushKey()
	if err := r.putJSON(ctx, deseadoKeyPrefix+item.ID, deseadoIndexKey, item.ID, item); err != nil {
		return domain.WishItem{}, err
	}
	return item, nil
}

func (r *RedisStore) ListWishItems(ctx context.Context) ([]domain.WishItem, error) {
	out, err := listJSON[domain.WishItem](ctx, r.client, deseadoIndexKey, deseadoKeyPrefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RedisStore) RemoveWishItem(ctx context.Context, id string) error {
	return r.dropJSON(ctx, deseadoKeyPrefix+id, deseadoIndexKey, id, domain.ErrWishNotFound)
}
