package checkers

// Winner returns the side whose opponent has no pieces left, or NoPlayer
// while both sides still have material.
func Winner(b *Board) Player {
	switch {
	case b.Count(Player1) == 0:
		return Player2
	case b.Count(Player2) == 0:
		return Player1
	default:
		return NoPlayer
	}
}
