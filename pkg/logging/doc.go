// Package logging builds the *slog.Logger shared by every mockingj component.
//
//	log := logging.New(logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON})
//	log.Warn("generation degraded", "path", "$.owner", "reason", "depth exceeded")
//
// Components take a logger through a WithLogger option and fall back to
// Nop. Open additionally tees entries as JSON into size-rotated files: every
// entry into File and ERROR entries into ErrorFile.
package logging
