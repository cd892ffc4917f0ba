// Package cart collects books to buy and turns them into a transaction.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Astemirdum/bookstore-client/pkg/kvstore"
	"github.com/Astemirdum/bookstore-client/storefront/internal/errs"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

const (
	KeyCart = "cart"

	checkoutConcurrency = 4
)

type Item struct {
	Book     model.Book `json:"book"`
	Quantity int        `json:"quantity"`
}

func (i Item) Subtotal() model.Amount {
	return model.Amount(i.Quantity) * i.Book.Price
}

type BookReader interface {
	Get(ctx context.Context, id string) (model.Book, error)
}

type TransactionCreator interface {
	Create(ctx context.Context, in model.CreateTransactionInput) (model.Transaction, error)
}

type Cart struct {
	log *zap.Logger
	kv  kvstore.Store

	mu    sync.Mutex
	items []Item
}

// New returns an empty cart that lives only in memory.
func New(log *zap.Logger) *Cart {
	return &Cart{log: log.Named("cart")}
}

// Load restores the cart kept in kv and saves every change back to it. An
// unreadable saved cart is discarded.
func Load(ctx context.Context, kv kvstore.Store, log *zap.Logger) (*Cart, error) {
	c := &Cart{log: log.Named("cart"), kv: kv}
	raw, err := kv.Get(ctx, KeyCart)
	if errors.Is(err, kvstore.ErrNotFound) {
		return c, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "cart: load")
	}
	if err := json.Unmarshal([]byte(raw), &c.items); err != nil {
		c.log.Warn("discarding unreadable cart", zap.Error(err))
		c.items = nil
	}
	return c, nil
}

// Add puts one more copy of b in the cart, never more than b has in stock.
func (c *Cart) Add(ctx context.Context, b model.Book) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !b.InStock() {
		return errs.ValidationErrors{"quantity": b.Title + " is out of stock"}
	}
	for i := range c.items {
		if c.items[i].Book.ID != b.ID {
			continue
		}
		if c.items[i].Quantity+1 > b.Stock {
			return stockError(b)
		}
		c.items[i].Book = b
		c.items[i].Quantity++
		return c.save(ctx)
	}
	c.items = append(c.items, Item{Book: b, Quantity: 1})
	return c.save(ctx)
}

// SetQuantity changes the quantity of a book already in the cart; zero or
// less removes it.
func (c *Cart) SetQuantity(ctx context.Context, bookID string, qty int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Book.ID != bookID {
			continue
		}
		if qty <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.save(ctx)
		}
		if qty > c.items[i].Book.Stock {
			return stockError(c.items[i].Book)
		}
		c.items[i].Quantity = qty
		return c.save(ctx)
	}
	return errs.ValidationErrors{"book_id": "Book is not in the cart"}
}

func (c *Cart) Remove(ctx context.Context, bookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Book.ID == bookID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return c.save(ctx)
		}
	}
	return nil
}

func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	return c.save(ctx)
}

func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Count is the number of copies, not of distinct books.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) Total() model.Amount {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total model.Amount
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

// Checkout re-reads every book to check current stock, then creates the
// transaction and empties the cart. Nothing is bought if any book is short.
func (c *Cart) Checkout(ctx context.Context, books BookReader, txs TransactionCreator) (model.Transaction, error) {
	items := c.Items()
	if len(items) == 0 {
		return model.Transaction{}, errs.ValidationErrors{"items": "Cart is empty"}
	}

	fresh := make([]model.Book, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(checkoutConcurrency)
	for i, it := range items {
		i, it := i, it
		g.Go(func() error {
			b, err := books.Get(gctx, it.Book.ID)
			if err != nil {
				return errors.Wrapf(err, "check %s", it.Book.Title)
			}
			if b.Stock < it.Quantity {
				return stockError(b)
			}
			fresh[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Transaction{}, err
	}

	in := model.CreateTransactionInput{Items: make([]model.OrderLine, 0, len(items))}
	for _, it := range items {
		in.Items = append(in.Items, model.OrderLine{BookID: it.Book.ID, Quantity: it.Quantity})
	}
	tx, err := txs.Create(ctx, in)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := c.Clear(ctx); err != nil {
		c.log.Warn("clear cart after checkout", zap.Error(err))
	}
	return tx, nil
}

func (c *Cart) save(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	if len(c.items) == 0 {
		return errors.Wrap(c.kv.Delete(ctx, KeyCart), "cart: save")
	}
	raw, err := json.Marshal(c.items)
	if err != nil {
		return errors.Wrap(err, "cart: encode")
	}
	return errors.Wrap(c.kv.Set(ctx, KeyCart, string(raw)), "cart: save")
}

func stockError(b model.Book) error {
	return errs.ValidationErrors{"quantity": fmt.Sprintf("Only %d of %s in stock", b.Stock, b.Title)}
}
