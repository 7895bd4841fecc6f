package game

// RoundArchive keeps the settled rounds of a table for readers outside the
// owner goroutine. The engine never reads it back.
type RoundArchive interface {
	Append(tableCode string, entry ScoreEntry) error
	List(tableCode string) ([]ScoreEntry, error)
	Remove(tableCode string) error
}
