package trust

import (
	"iter"
	"maps"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
)

// Balance is the projection of all grants in one direction between two accounts.
type Balance struct {
	Count       int
	StakedTotal decimal.Decimal
}

// Summary aggregates every grant an account received or gave.
type Summary struct {
	Count        int
	StakedTotal  decimal.Decimal
	AverageLevel float64
	// Counterparties is the number of distinct accounts on the other side.
	Counterparties int
}

type pair struct {
	sender    string
	recipient string
}

// txKey scopes a transaction id to its pair, the key events are ordered by.
type txKey struct {
	pair
	id string
}

// Ledger is the trust projection. It is not safe for concurrent use; the
// engine store serialises writes and hands readers a Clone.
type Ledger struct {
	grants       []Grant
	pairs        map[pair]Balance
	incoming     map[string][]int
	outgoing     map[string][]int
	transactions map[txKey]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		pairs:        make(map[pair]Balance),
		incoming:     make(map[string][]int),
		outgoing:     make(map[string][]int),
		transactions: make(map[txKey]struct{}),
	}
}

// Check reports whether g could be applied to the current ledger without
// changing it. Transaction ids are unique per directed pair.
func (l *Ledger) Check(g Grant) error {
	if err := g.validate(); err != nil {
		return err
	}
	if _, ok := l.transactions[g.txKey()]; ok {
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists, ErrDuplicateTransaction.Message,
			map[string]string{"transaction_id": g.TransactionID})
	}
	return nil
}

// ApplyTrustGiven records g, incrementing the pair count and stake.
func (l *Ledger) ApplyTrustGiven(g Grant) error {
	if err := l.Check(g); err != nil {
		return err
	}
	idx := len(l.grants)
	l.grants = append(l.grants, g)
	l.transactions[g.txKey()] = struct{}{}

	key := pair{sender: g.Sender, recipient: g.Recipient}
	bal, ok := l.pairs[key]
	if !ok {
		bal.StakedTotal = decimal.Zero
	}
	bal.Count++
	bal.StakedTotal = bal.StakedTotal.Add(g.Staked)
	l.pairs[key] = bal

	l.incoming[g.Recipient] = l.insertOrdered(l.incoming[g.Recipient], idx)
	l.outgoing[g.Sender] = l.insertOrdered(l.outgoing[g.Sender], idx)
	return nil
}

func (g Grant) txKey() txKey {
	return txKey{pair: pair{sender: g.Sender, recipient: g.Recipient}, id: g.TransactionID}
}

// insertOrdered keeps list sorted by timestamp, then transaction id. The
// order does not depend on arrival, so lanes applying different pairs
// concurrently still produce the same sequences.
func (l *Ledger) insertOrdered(list []int, idx int) []int {
	g := l.grants[idx]
	pos := sort.Search(len(list), func(i int) bool {
		other := l.grants[list[i]]
		if !other.Timestamp.Equal(g.Timestamp) {
			return other.Timestamp.After(g.Timestamp)
		}
		return other.TransactionID > g.TransactionID
	})
	return slices.Insert(list, pos, idx)
}

// Balance returns the directed balance from a to b.
func (l *Ledger) Balance(a, b string) Balance {
	bal, ok := l.pairs[pair{sender: a, recipient: b}]
	if !ok {
		return Balance{StakedTotal: decimal.Zero}
	}
	return bal
}

// Received summarises grants where account is the recipient.
func (l *Ledger) Received(account string) Summary {
	return l.summarize(l.incoming[account], func(g Grant) string { return g.Sender })
}

// Given summarises grants where account is the sender.
func (l *Ledger) Given(account string) Summary {
	return l.summarize(l.outgoing[account], func(g Grant) string { return g.Recipient })
}

func (l *Ledger) summarize(indexes []int, counterparty func(Grant) string) Summary {
	sum := Summary{StakedTotal: decimal.Zero}
	if len(indexes) == 0 {
		return sum
	}
	seen := make(map[string]struct{}, len(indexes))
	levels := 0
	for _, idx := range indexes {
		g := l.grants[idx]
		sum.Count++
		sum.StakedTotal = sum.StakedTotal.Add(g.Staked)
		levels += g.Level
		seen[counterparty(g)] = struct{}{}
	}
	sum.AverageLevel = float64(levels) / float64(sum.Count)
	sum.Counterparties = len(seen)
	return sum
}

// AllIncoming yields grants received by account ordered by event timestamp,
// ties by transaction id. The sequence can be ranged over any number of times.
func (l *Ledger) AllIncoming(account string) iter.Seq[Grant] {
	return l.sequence(l.incoming[account])
}

// AllOutgoing yields grants sent by account ordered by event timestamp.
func (l *Ledger) AllOutgoing(account string) iter.Seq[Grant] {
	return l.sequence(l.outgoing[account])
}

func (l *Ledger) sequence(indexes []int) iter.Seq[Grant] {
	indexes = slices.Clip(indexes)
	grants := l.grants
	return func(yield func(Grant) bool) {
		for _, idx := range indexes {
			if !yield(grants[idx]) {
				return
			}
		}
	}
}

// Accounts lists every account that gave or received trust, sorted.
func (l *Ledger) Accounts() []string {
	seen := make(map[string]struct{}, len(l.incoming)+len(l.outgoing))
	for account := range l.incoming {
		seen[account] = struct{}{}
	}
	for account := range l.outgoing {
		seen[account] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Len returns the number of recorded grants.
func (l *Ledger) Len() int {
	return len(l.grants)
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() *Ledger {
	out := &Ledger{
		grants:       slices.Clone(l.grants),
		pairs:        maps.Clone(l.pairs),
		incoming:     make(map[string][]int, len(l.incoming)),
		outgoing:     make(map[string][]int, len(l.outgoing)),
		transactions: maps.Clone(l.transactions),
	}
	for account, list := range l.incoming {
		out.incoming[account] = slices.Clone(list)
	}
	for account, list := range l.outgoing {
		out.outgoing[account] = slices.Clone(list)
	}
	return out
}
