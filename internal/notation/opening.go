package notation

import (
	"fmt"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/corentings/chess/v2/opening"
)

// OpeningMaxPly bounds how deep into a game the ECO book is consulted.
const OpeningMaxPly = 24

var (
	ecoOnce sync.Once
	ecoBook *opening.BookECO
)

type Opening struct {
	Code  string
	Title string
}

// IdentifyOpening finds the most specific ECO entry for a move list given in
// UCI from the standard start. ok is false when nothing matches.
func IdentifyOpening(movesUCI []string) (op Opening, ok bool, err error) {
	if len(movesUCI) == 0 {
		return Opening{}, false, nil
	}
	ng := nchess.NewGame()
	for i, s := range movesUCI {
		if i >= OpeningMaxPly {
			break
		}
		mv, err := nchess.UCINotation{}.Decode(ng.Position(), s)
		if err != nil {
			return Opening{}, false, fmt.Errorf("decode ply %d %s: %w", i+1, s, err)
		}
		if err := ng.Move(mv, nil); err != nil {
			return Opening{}, false, fmt.Errorf("play ply %d %s: %w", i+1, s, err)
		}
	}
	ecoOnce.Do(func() { ecoBook = opening.NewBookECO() })
	found := ecoBook.Find(ng.Moves())
	if found == nil {
		return Opening{}, false, nil
	}
	return Opening{Code: found.Code(), Title: found.Title()}, true, nil
}
