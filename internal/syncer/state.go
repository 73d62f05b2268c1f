package syncer

import (
	"encoding/json"
	"os"
)

// persistentState is the syncer's own small cursor file: the last
// indexed commit, and which collection identifier each collection file
// path last produced (so a later deletion of that path can be turned
// into an Engine.Remove without re-reading the file).
//
// The core store deliberately owns no such table, since its schema is
// fixed exactly, so this cursor lives beside it as the syncer's own
// concern, kept separate from the store's schema and its purely
// in-memory run summary the way sibling components usually split
// persistent cursor state from primary storage — the difference here is
// only that this cursor also needs a path index, so it can't live in
// the fixed schema at all.
type persistentState struct {
	LastCommit   string            `json:"lastCommit"`
	PathIdentity map[string]string `json:"pathIdentity"`
}

func loadState(path string) persistentState {
	st := persistentState{PathIdentity: make(map[string]string)}
	if path == "" {
		return st
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return st
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		return persistentState{PathIdentity: make(map[string]string)}
	}
	if st.PathIdentity == nil {
		st.PathIdentity = make(map[string]string)
	}
	return st
}

func saveState(path string, st persistentState) error {
	if path == "" {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}
