package streak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/marcus/tally/internal/kv"
	"github.com/marcus/tally/internal/models"
)

const keyPrefix = "streak:"

// ErrInvalidKey is returned for streak keys that fail NormalizeKey.
var ErrInvalidKey = errors.New("invalid streak key")

var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// NormalizeKey trims and lower-cases key and checks it is a plain identifier.
func NormalizeKey(key string) (string, error) {
	k := strings.ToLower(strings.TrimSpace(key))
	if !keyPattern.MatchString(k) {
		return "", fmt.Errorf("%w: %q (use letters, digits, '-' or '_')", ErrInvalidKey, key)
	}
	return k, nil
}

// StoreKey returns the kv key a streak's ledger is stored under.
func StoreKey(key string) string {
	return keyPrefix + key
}

// KeyFromStoreKey reverses StoreKey.
func KeyFromStoreKey(storeKey string) (string, bool) {
	return strings.CutPrefix(storeKey, keyPrefix)
}

// Load reads the ledger for key, returning a zero ledger when none is stored.
func Load(ctx context.Context, store kv.Store, key string) (models.Ledger, error) {
	var l models.Ledger
	if _, err := kv.GetJSON(ctx, store, StoreKey(key), &l); err != nil {
		return models.Ledger{}, fmt.Errorf("load streak %s: %w", key, err)
	}
	return l, nil
}

// Save writes the ledger for key. A full store yields an error wrapping
// kv.ErrStorageFull.
func Save(ctx context.Context, store kv.Store, key string, l models.Ledger) error {
	if err := kv.SetJSON(ctx, store, StoreKey(key), l); err != nil {
		return fmt.Errorf("save streak %s: %w", key, err)
	}
	return nil
}

// Modify runs a read-modify-write of key's ledger, atomically when store
// implements kv.Updater. fn receives the current ledger (zero when none is
// stored) and reports whether its result should be written.
//
// applied reports whether fn ran; when it is false the error came from
// reading or decoding the stored ledger.
func Modify(ctx context.Context, store kv.Store, key string, fn func(models.Ledger) (models.Ledger, bool)) (applied bool, err error) {
	err = kv.Update(ctx, store, StoreKey(key), func(old []byte, found bool) ([]byte, error) {
		var l models.Ledger
		if found {
			if err := json.Unmarshal(old, &l); err != nil {
				return nil, fmt.Errorf("decode: %w", err)
			}
		}
		next, write := fn(l)
		applied = true
		if !write {
			return nil, nil
		}
		return json.Marshal(next)
	})
	if err == nil {
		return applied, nil
	}
	if !applied {
		return false, fmt.Errorf("load streak %s: %w", key, err)
	}
	return true, fmt.Errorf("save streak %s: %w", key, err)
}
