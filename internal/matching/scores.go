package matching

// Match score constants for path matching.
const (
	// ScorePathExact is the score for an exact path match.
	ScorePathExact = 15

	// ScorePathNamedParams is the base score for a template with named
	// parameters. Each literal segment adds ScoreLiteralSegment.
	ScorePathNamedParams = 12

	// ScoreLiteralSegment rewards templates with more fixed segments, so
	// /pets/mine beats /pets/{id} and /pets/{id}/toys beats /{kind}/{id}/toys.
	ScoreLiteralSegment = 1
)
