package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"tienda-ledger/domain"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewMemoryStore(node)
}

func TestMemoryStore_UpdateAccountConflict(t *testing.T) {

	store := newTestStore(t)
	ctx := context.Background()

	acct, err := store.CreateAccount(ctx, "Cliente")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := store.GetAccount(ctx, acct.ID)
	b, _ := store.GetAccount(ctx, acct.ID)

	a.Nombre = "Cliente A"
	if _, err := store.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("first writer: %v", err)
	}

	b.Nombre = "Cliente B"
	if _, err := store.UpdateAccount(ctx, b); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for stale writer, got %v", err)
	}

	// la escritura del primero sobrevive
	got, _ := store.GetAccount(ctx, acct.ID)
	if got.Nombre != "Cliente A" {
		t.Errorf("expected Cliente A, got %s", got.Nombre)
	}
}

func TestMemoryStore_WatchAccount(t *testing.T) {

	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acct, err := store.CreateAccount(ctx, "Cliente")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ch, err := store.WatchAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	// primero llega el estado actual
	first := receiveAccount(t, ch)
	if first.Version != 1 {
		t.Errorf("expected current state with version 1, got %d", first.Version)
	}

	acct.TotalDeuda = decimal.NewFromInt(25)
	if _, err := store.UpdateAccount(ctx, acct); err != nil {
		t.Fatalf("update: %v", err)
	}

	second := receiveAccount(t, ch)
	if second.Version != 2 || !second.TotalDeuda.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected version 2 with total 25, got v%d total %s",
			second.Version, second.TotalDeuda)
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("channel not closed after cancel")
		}
	}
}

func TestMemoryStore_WatchUnknownAccount(t *testing.T) {

	store := newTestStore(t)

	_, err := store.WatchAccount(context.Background(), "no-such-id")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected ErrAccountNotFound, got %v", err)
	}
}

func receiveAccount(t *testing.T, ch <-chan domain.DebtAccount) domain.DebtAccount {
	t.Helper()
	select {
	case acct := <-ch:
		return acct
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for account event")
		return domain.DebtAccount{}
	}
}

func TestMemoryStore_WatchVersionsNeverRegress(t *testing.T) {

	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	acct, err := store.CreateAccount(ctx, "Cliente")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// escritor activo mientras se abre la suscripción, para que haya
	// publicaciones en vuelo alrededor de la instantánea inicial
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 20; i++ {
			cur, err := store.GetAccount(ctx, acct.ID)
			if err != nil {
				return
			}
			cur.TotalDeuda = decimal.NewFromInt(int64(i))
			if _, err := store.UpdateAccount(ctx, cur); err != nil {
				return
			}
		}
	}()

	ch, err := store.WatchAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	<-done

	last := int64(0)
	for {
		select {
		case evt := <-ch:
			if evt.Version <= last {
				t.Fatalf("version regressed: got %d after %d", evt.Version, last)
			}
			last = evt.Version
		case <-time.After(500 * time.Millisecond):
			// el escritor terminó y no quedan eventos en vuelo
			if last == 0 {
				t.Fatalf("no events received")
			}
			return
		}
	}
}
