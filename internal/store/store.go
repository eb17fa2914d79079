// Package store persists the gateway's runtime state as JSON files,
// written atomically (temp file then rename) so a crash mid-write never
// leaves a truncated file behind, per spec.md section 6.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/brightloop/antigravity-gateway/internal/accountpool"
)

// LoadAccounts reads the account pool from path. A missing file is not
// an error: it returns an empty slice, matching a first-run gateway with
// no credentials onboarded yet. A present-but-truncated or corrupt file
// is also tolerated: callers should not refuse to start because a prior
// write was interrupted, so LoadAccounts returns an empty slice rather
// than an error in that case too.
func LoadAccounts(path string) ([]*accountpool.Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var accounts []*accountpool.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, nil
	}
	return accounts, nil
}

// SaveAccounts writes accounts to path atomically. Intended to be wired
// to accountpool.Pool.OnChange so every pool mutation is durable.
func SaveAccounts(path string, accounts []*accountpool.Account) error {
	return WriteAtomicJSON(path, accounts)
}

// WriteAtomicJSON marshals v and writes it to path via a temp-file-then-
// rename, grounded on the teacher's internal/desktopctl/state.go
// saveState helper. Exported so other persisted state (internal/
// gatewayconfig) can reuse the same durability guarantee.
func WriteAtomicJSON(path string, v any) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadJSON reads path and unmarshals it into v. A missing file reports
// ok=false with a nil error; a present-but-corrupt file also reports
// ok=false rather than erroring, so callers can fall back to a zero
// value instead of refusing to start.
func ReadJSON(path string, v any) (ok bool, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return false, nil
		}
		return false, readErr
	}
	if jsonErr := json.Unmarshal(data, v); jsonErr != nil {
		return false, nil
	}
	return true, nil
}
