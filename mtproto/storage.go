package mtproto

import (
	"os"
	"path/filepath"

	pebbledb "github.com/cockroachdb/pebble"
	"github.com/go-faster/errors"
	"github.com/gotd/td/session"
	"go.etcd.io/bbolt"
)

// Storage is a wrapper around the on-disk state of a session: the session
// file, the peer cache and the update state.
type Storage struct {
	SessionDir     string
	SessionStorage *session.FileStorage
	DB             *pebbledb.DB
	Bolt           *bbolt.DB
}

func sessionFolder(phone string) string {
	var out []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			out = append(out, r)
		}
	}
	return "phone-" + string(out)
}

// OpenStorage opens the session state under
// <stateDir>/session/phone-<digits>.
func OpenStorage(stateDir, phone string) (s *Storage, err error) {
	s = &Storage{}
	// This is needed to reuse session and not login every time.
	s.SessionDir = filepath.Join(stateDir, "session", sessionFolder(phone))
	if err = os.MkdirAll(s.SessionDir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create session dir")
	}
	s.SessionStorage = &session.FileStorage{
		Path: filepath.Join(s.SessionDir, "session.json"),
	}
	// Peer storage, for resolve caching and short updates handling.
	s.DB, err = pebbledb.Open(filepath.Join(s.SessionDir, "peers.pebble.db"), &pebbledb.Options{})
	if err != nil {
		return nil, errors.Wrap(err, "create pebble storage")
	}
	// Persistent qts/pts to be able to recover after restart.
	s.Bolt, err = bbolt.Open(filepath.Join(s.SessionDir, "updates.bolt.db"), 0o666, nil)
	if err != nil {
		_ = s.DB.Close()
		return nil, errors.Wrap(err, "create bolt storage")
	}
	return s, nil
}

func (s *Storage) Close() error {
	boltErr := s.Bolt.Close()
	if err := s.DB.Close(); err != nil {
		return errors.Wrap(err, "close pebble storage")
	}
	if boltErr != nil {
		return errors.Wrap(boltErr, "close bolt storage")
	}
	return nil
}
