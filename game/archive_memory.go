package game

import (
	"sync"

	jsoniter "github.com/json-iterator/go"
)

type MemoryRoundArchive struct {
	lock   sync.RWMutex
	rounds map[string][][]byte
}

func NewMemoryRoundArchive() *MemoryRoundArchive {
	return &MemoryRoundArchive{
		rounds: make(map[string][][]byte),
	}
}

func (m *MemoryRoundArchive) Append(tableCode string, entry ScoreEntry) error {
	entryBytes, err := jsoniter.Marshal(entry)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.rounds[tableCode] = append(m.rounds[tableCode], entryBytes)
	return nil
}

func (m *MemoryRoundArchive) List(tableCode string) ([]ScoreEntry, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	entries := make([]ScoreEntry, 0, len(m.rounds[tableCode]))
	for _, entryBytes := range m.rounds[tableCode] {
		var entry ScoreEntry
		err := jsoniter.Unmarshal(entryBytes, &entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *MemoryRoundArchive) Remove(tableCode string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.rounds, tableCode)
	return nil
}
