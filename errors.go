package tilecache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/tilecache/tile"
)

var ErrNoSource = errors.New("tilecache: Source is required")

// InvalidIDError is the panic value for a tile ID outside its zoom's grid.
// Passing one is a programming error.
type InvalidIDError struct {
	ID tile.ID
}

func (e *InvalidIDError) Error() string {
	return fmt.Sprintf("tilecache: tile id %s outside the zoom grid", e.ID)
}

func mustValid(id tile.ID) {
	if !id.Valid() {
		panic(&InvalidIDError{ID: id})
	}
}
