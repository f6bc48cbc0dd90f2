package poll

import (
	"maps"
	"slices"

	apperrors "github.com/louisbranch/trustmesh/internal/platform/errors"
)

// Book holds every poll keyed by id. Writes are serialised by the engine store.
type Book struct {
	polls map[string]*Poll
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{polls: make(map[string]*Poll)}
}

// CheckCreate reports whether p could be added.
func (b *Book) CheckCreate(p *Poll) error {
	if _, ok := b.polls[p.ID]; ok {
		return apperrors.WithMetadata(apperrors.CodeAlreadyExists, "poll already exists",
			map[string]string{"poll_id": p.ID})
	}
	return nil
}

// ApplyCreated adds p.
func (b *Book) ApplyCreated(p *Poll) error {
	if err := b.CheckCreate(p); err != nil {
		return err
	}
	b.polls[p.ID] = p.Clone()
	return nil
}

// CheckVote reports whether v could be cast at its own timestamp.
func (b *Book) CheckVote(v Vote) error {
	p, err := b.lookup(v.PollID)
	if err != nil {
		return err
	}
	return p.CheckVote(v, v.Timestamp)
}

// CastVote records v against its poll.
func (b *Book) CastVote(v Vote) error {
	p, err := b.lookup(v.PollID)
	if err != nil {
		return err
	}
	return p.CastVote(v)
}

func (b *Book) lookup(id string) (*Poll, error) {
	p, ok := b.polls[id]
	if !ok {
		return nil, apperrors.WithMetadata(apperrors.CodeNotFound, ErrNotFound.Message,
			map[string]string{"poll_id": id})
	}
	return p, nil
}

// Get returns a copy of the poll with id.
func (b *Book) Get(id string) (*Poll, error) {
	p, err := b.lookup(id)
	if err != nil {
		return nil, err
	}
	return p.Clone(), nil
}

// List returns copies of every poll sorted by id.
func (b *Book) List() []*Poll {
	ids := slices.Sorted(maps.Keys(b.polls))
	out := make([]*Poll, 0, len(ids))
	for _, id := range ids {
		out = append(out, b.polls[id].Clone())
	}
	return out
}

// Len returns the number of polls.
func (b *Book) Len() int {
	return len(b.polls)
}

// Clone returns an independent copy.
func (b *Book) Clone() *Book {
	out := &Book{polls: make(map[string]*Poll, len(b.polls))}
	for id, p := range b.polls {
		out.polls[id] = p.Clone()
	}
	return out
}
