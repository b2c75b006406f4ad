package sessions

import "github.com/google/uuid"

// LocalSession is a minimal concrete Session for embedders that don't carry
// their own session type, and for tests. The ID is generated at construction.
type LocalSession struct {
	id        string
	serverJID string
}

var _ Session = (*LocalSession)(nil)

// NewLocalSession returns a session bound to serverJID with a fresh unique
// session ID.
func NewLocalSession(serverJID string) *LocalSession {
	return &LocalSession{
		id:        uuid.NewString(),
		serverJID: serverJID,
	}
}

func (s *LocalSession) SessionID() string { return s.id }

func (s *LocalSession) ServerJID() string { return s.serverJID }
