package engine

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNoLiquidity rejects a FOK order that cannot fill completely.
	ErrNoLiquidity = errors.New("insufficient liquidity")
)

// OrderBook is a single-symbol price-time priority book. All mutation
// goes through AddOrder; reads (snapshots, BBO) take the read lock.
type OrderBook struct {
	mu     sync.RWMutex
	symbol string

	// Heap-based best price tracking (O(1) peek)
	bidHeap *maxPriceHeap
	askHeap *minPriceHeap

	// Price level queues (FIFO matching at each price)
	bids map[float64][]*Order
	asks map[float64][]*Order

	lastPrice float64 // most recent fill price

	makerFeeRate float64
	takerFeeRate float64
}

// FeeSchedule carries the maker/taker rates applied to fills.
type FeeSchedule struct {
	MakerRate float64
	TakerRate float64
}

// DefaultFees is 10bps maker, 20bps taker.
var DefaultFees = FeeSchedule{MakerRate: 0.001, TakerRate: 0.002}

func NewOrderBook(symbol string, fees FeeSchedule) *OrderBook {
	bidHeap := &maxPriceHeap{}
	askHeap := &minPriceHeap{}
	heap.Init(bidHeap)
	heap.Init(askHeap)

	return &OrderBook{
		symbol:       symbol,
		bidHeap:      bidHeap,
		askHeap:      askHeap,
		bids:         make(map[float64][]*Order),
		asks:         make(map[float64][]*Order),
		makerFeeRate: fees.MakerRate,
		takerFeeRate: fees.TakerRate,
	}
}

func (ob *OrderBook) Symbol() string { return ob.symbol }

// bestBid returns the highest bid price (O(1) with heap)
func (ob *OrderBook) bestBid() (float64, bool) {
	if ob.bidHeap.Len() == 0 {
		return 0, false
	}
	return ob.bidHeap.Peek(), true
}

// bestAsk returns the lowest ask price (O(1) with heap)
func (ob *OrderBook) bestAsk() (float64, bool) {
	if ob.askHeap.Len() == 0 {
		return 0, false
	}
	return ob.askHeap.Peek(), true
}

func (ob *OrderBook) addBid(p float64, o *Order) {
	if len(ob.bids[p]) == 0 {
		heap.Push(ob.bidHeap, p)
	}
	ob.bids[p] = append(ob.bids[p], o)
}

func (ob *OrderBook) addAsk(p float64, o *Order) {
	if len(ob.asks[p]) == 0 {
		heap.Push(ob.askHeap, p)
	}
	ob.asks[p] = append(ob.asks[p], o)
}

// removeFromBidHeap removes a price level from the bid heap (O(N) worst case, but rare)
func (ob *OrderBook) removeFromBidHeap(price float64) {
	for i := 0; i < ob.bidHeap.Len(); i++ {
		if (*ob.bidHeap)[i] == price {
			heap.Remove(ob.bidHeap, i)
			return
		}
	}
}

// removeFromAskHeap removes a price level from the ask heap (O(N) worst case, but rare)
func (ob *OrderBook) removeFromAskHeap(price float64) {
	for i := 0; i < ob.askHeap.Len(); i++ {
		if (*ob.askHeap)[i] == price {
			heap.Remove(ob.askHeap, i)
			return
		}
	}
}

// AddOrder applies one order to the book and returns the fills it
// produced. LIMIT rests any remainder; MARKET and IOC discard it; FOK
// fills completely or not at all (ErrNoLiquidity).
func (ob *OrderBook) AddOrder(price, qty float64, side Side, typ OrderType) ([]Trade, error) {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return nil, fmt.Errorf("invalid quantity %v", qty)
	}
	if typ != Market && (price <= 0 || math.IsNaN(price) || math.IsInf(price, 0)) {
		return nil, fmt.Errorf("invalid price %v", price)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()

	o := &Order{
		ID:     nextOrderID(),
		Symbol: ob.symbol,
		Side:   side,
		Type:   typ,
		Price:  price,
		Qty:    qty,
	}

	switch typ {
	case Market:
		return ob.match(o, false), nil
	case IOC:
		return ob.match(o, true), nil
	case FOK:
		if ob.availableQty(side, price) < qty {
			return nil, ErrNoLiquidity
		}
		return ob.match(o, true), nil
	default: // Limit
		trades := ob.match(o, true)
		if o.Qty > 0 {
			if side == Buy {
				ob.addBid(o.Price, o)
			} else {
				ob.addAsk(o.Price, o)
			}
		}
		return trades, nil
	}
}

// match crosses the taker against the opposite side by price-time.
// limitPrice=false ignores the price bound (market orders).
func (ob *OrderBook) match(o *Order, limitPrice bool) []Trade {
	var trades []Trade

	for o.Qty > 0 {
		var levelPrice float64
		var ok bool
		if o.Side == Buy {
			levelPrice, ok = ob.bestAsk()
			if !ok || (limitPrice && levelPrice > o.Price) {
				break
			}
		} else {
			levelPrice, ok = ob.bestBid()
			if !ok || (limitPrice && levelPrice < o.Price) {
				break
			}
		}

		var level []*Order
		if o.Side == Buy {
			level = ob.asks[levelPrice]
		} else {
			level = ob.bids[levelPrice]
		}
		if len(level) == 0 {
			ob.dropLevel(o.Side, levelPrice)
			continue
		}

		maker := level[0]
		fill := math.Min(o.Qty, maker.Qty)
		o.Qty -= fill
		maker.Qty -= fill

		notional := fill * levelPrice
		trades = append(trades, Trade{
			ID:           nextTradeID(),
			Symbol:       ob.symbol,
			Price:        levelPrice,
			Qty:          fill,
			MakerOrderID: maker.ID,
			TakerOrderID: o.ID,
			Aggressor:    o.Side.String(),
			MakerFee:     notional * ob.makerFeeRate,
			TakerFee:     notional * ob.takerFeeRate,
			Timestamp:    time.Now().UnixMicro(),
		})
		ob.lastPrice = levelPrice

		if maker.Qty == 0 {
			if o.Side == Buy {
				ob.asks[levelPrice] = level[1:]
				if len(ob.asks[levelPrice]) == 0 {
					ob.dropLevel(o.Side, levelPrice)
				}
			} else {
				ob.bids[levelPrice] = level[1:]
				if len(ob.bids[levelPrice]) == 0 {
					ob.dropLevel(o.Side, levelPrice)
				}
			}
		}
	}

	return trades
}

// dropLevel removes an exhausted price level from the side opposite
// the taker.
func (ob *OrderBook) dropLevel(takerSide Side, price float64) {
	if takerSide == Buy {
		delete(ob.asks, price)
		ob.removeFromAskHeap(price)
	} else {
		delete(ob.bids, price)
		ob.removeFromBidHeap(price)
	}
}

// availableQty sums resting quantity a taker at this limit price could
// reach, for FOK feasibility.
func (ob *OrderBook) availableQty(takerSide Side, limit float64) float64 {
	var total float64
	if takerSide == Buy {
		for price, level := range ob.asks {
			if price > limit {
				continue
			}
			for _, o := range level {
				total += o.Qty
			}
		}
	} else {
		for price, level := range ob.bids {
			if price < limit {
				continue
			}
			for _, o := range level {
				total += o.Qty
			}
		}
	}
	return total
}

// Snapshot returns the best `depth` levels per side, best-first, with
// per-level aggregate quantity.
func (ob *OrderBook) Snapshot(depth int) Snapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	bids := aggregateLevels(ob.bids)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	asks := aggregateLevels(ob.asks)
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })

	if depth > 0 {
		if len(bids) > depth {
			bids = bids[:depth]
		}
		if len(asks) > depth {
			asks = asks[:depth]
		}
	}

	return Snapshot{Symbol: ob.symbol, Bids: bids, Asks: asks, Depth: depth}
}

func aggregateLevels(side map[float64][]*Order) []Level {
	levels := make([]Level, 0, len(side))
	for price, orders := range side {
		if len(orders) == 0 {
			continue
		}
		var totalQty float64
		for _, o := range orders {
			totalQty += o.Qty
		}
		levels = append(levels, Level{Price: price, Qty: totalQty})
	}
	return levels
}

// BestBid returns the highest resting bid, if any.
func (ob *OrderBook) BestBid() (float64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestBid()
}

// BestAsk returns the lowest resting ask, if any.
func (ob *OrderBook) BestAsk() (float64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.bestAsk()
}

// LastPrice returns the price of the most recent fill, 0 if none.
func (ob *OrderBook) LastPrice() float64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	return ob.lastPrice
}
