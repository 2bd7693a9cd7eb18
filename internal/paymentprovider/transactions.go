package paymentprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrTransactionNotFound означает, что транзакции с таким идентификатором
// в списке шлюза (пока) нет.
var ErrTransactionNotFound = errors.New("gateway transaction not found")

// Cache описывает методы для кэширования ответов шлюза.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// inflightLookup хранит результат запроса-лидера, чтобы ожидающие
// проверки того же счёта забрали его без похода в шлюз.
type inflightLookup struct {
	done chan struct{}
	tx   *Transaction
	err  error
}

// TransactionFinder ищет транзакцию шлюза по идентификатору, закрывая
// повторные проверки оплаты коротким кешем и дедупликацией одновременных
// запросов. Кеш — только оптимизация "не долбить шлюз", без требований
// к консистентности; его можно отключить, передав nil.
type TransactionFinder struct {
	client *Client
	cache  Cache
	ttl    time.Duration

	mu       sync.Mutex
	inflight map[string]*inflightLookup
}

// NewTransactionFinder создаёт TransactionFinder поверх клиента шлюза.
func NewTransactionFinder(client *Client, cache Cache, ttl time.Duration) *TransactionFinder {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TransactionFinder{
		client:   client,
		cache:    cache,
		ttl:      ttl,
		inflight: make(map[string]*inflightLookup),
	}
}

// FindTransaction возвращает транзакцию по её ID или InvoiceID.
func (f *TransactionFinder) FindTransaction(ctx context.Context, gatewayID string) (*Transaction, error) {
	const op = "paymentprovider.FindTransaction"
	cacheKey := "gateway:tx:" + gatewayID

	if tx, ok := f.fromCache(cacheKey); ok {
		return tx, nil
	}

	// Одновременные проверки одного счёта ждут запрос-лидер и забирают
	// его результат напрямую, дедупликация работает и без кеша.
	f.mu.Lock()
	if call, ok := f.inflight[gatewayID]; ok {
		f.mu.Unlock()
		select {
		case <-call.done:
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		if call.tx != nil {
			return call.tx, nil
		}
		if errors.Is(call.err, ErrTransactionNotFound) {
			return nil, call.err
		}
		// Лидер упал с транзиентной ошибкой, идём в шлюз сами.
		return f.lookup(ctx, gatewayID, cacheKey)
	}

	call := &inflightLookup{done: make(chan struct{})}
	f.inflight[gatewayID] = call
	f.mu.Unlock()

	tx, err := f.lookup(ctx, gatewayID, cacheKey)
	call.tx, call.err = tx, err

	f.mu.Lock()
	delete(f.inflight, gatewayID)
	f.mu.Unlock()
	close(call.done)

	return tx, err
}

// lookup запрашивает список транзакций шлюза и ищет совпадение по любому
// из двух идентификаторов.
func (f *TransactionFinder) lookup(ctx context.Context, gatewayID, cacheKey string) (*Transaction, error) {
	const op = "paymentprovider.FindTransaction"

	transactions, err := f.client.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range transactions {
		tx := transactions[i]
		if tx.ID != gatewayID && tx.InvoiceID != gatewayID {
			continue
		}
		if f.cache != nil {
			// Кеш не является источником истины, ошибка записи не критична.
			_ = f.cache.Set(cacheKey, tx, f.ttl)
		}
		return &tx, nil
	}

	return nil, fmt.Errorf("%s: %w", op, ErrTransactionNotFound)
}

func (f *TransactionFinder) fromCache(key string) (*Transaction, bool) {
	if f.cache == nil {
		return nil, false
	}
	var tx Transaction
	found, err := f.cache.Get(key, &tx)
	if err != nil || !found {
		return nil, false
	}
	return &tx, true
}
