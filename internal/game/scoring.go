package game

// Scoring constants. One rule set is canonical:
//   - combo bonus uses the tier table below (not the linear (combo-1)*5 rule),
//   - a won timed session earns 2 points per remaining second,
//   - a won limited-lives session earns 10 points per remaining life.
const (
	basePoints         = 10
	timeBonusPerSecond = 2
	lifeBonusPerLife   = 10

	startingLives   = 3
	startingSeconds = 60

	levelStep    = 2
	maxLevelSize = 7
)

// ComboBonus returns the flat bonus for the n-th consecutive correct match.
func ComboBonus(combo int) int {
	switch {
	case combo >= 5:
		return 50
	case combo == 4:
		return 30
	case combo == 3:
		return 15
	case combo == 2:
		return 5
	}
	return 0
}

// MatchPoints is the score awarded for a correct match at the given combo count.
func MatchPoints(combo int) int { return basePoints + ComboBonus(combo) }

// WinBonus is added to the score when a session is won.
func WinBonus(mode Mode, livesRemaining, secondsRemaining int) int {
	switch mode {
	case ModeTimed:
		return secondsRemaining * timeBonusPerSecond
	case ModeLimitedLives:
		return livesRemaining * lifeBonusPerLife
	}
	return 0
}

// NextDimension is the board size after advancing a level. Boards already at or
// above the cap keep their size.
func NextDimension(current int) int {
	if current >= maxLevelSize {
		return current
	}
	return min(maxLevelSize, current+levelStep)
}
