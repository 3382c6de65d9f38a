package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/diplomats-club/internal/engine"
)

var ErrNotFound = errors.New("room not found")
var ErrExists = errors.New("room already exists")
var ErrSeatTaken = errors.New("seat already claimed")
var ErrRevisionConflict = errors.New("revision conflict")

// Doc is the one authoritative document per room. Revisions increase by one
// per accepted write; consumers drop anything at or below the revision they
// already project.
type Doc struct {
	Code      string                 `bson:"_id" json:"code"`
	Rev       int64                  `bson:"rev" json:"rev"`
	Seats     map[engine.Seat]string `bson:"seats" json:"seats"`
	State     engine.State           `bson:"state" json:"state"`
	UpdatedAt time.Time              `bson:"updated_at" json:"updated_at"`
}

// Store is the document-level contract the game needs: get, create-if-
// absent, transactional seat claim, revision-guarded update, and a change
// feed. Nothing here knows about rounds or races.
type Store interface {
	Get(ctx context.Context, code string) (Doc, error)
	Create(ctx context.Context, doc Doc) error
	ClaimSeat(ctx context.Context, code string, seat engine.Seat, playerID string) (Doc, error)
	Update(ctx context.Context, doc Doc) (Doc, error)
	// Watch delivers every accepted write for the room until cancel is
	// called or ctx ends. Slow consumers may miss intermediate revisions
	// but always eventually see the newest.
	Watch(ctx context.Context, code string) (<-chan Doc, func(), error)
}

// NewDoc builds a fresh room document around a starting game state.
func NewDoc(code string, state engine.State) Doc {
	return Doc{
		Code:      code,
		Rev:       0,
		Seats:     map[engine.Seat]string{},
		State:     state,
		UpdatedAt: time.Now().UTC(),
	}
}
