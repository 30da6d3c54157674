package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"course-exam-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps login sessions in process and mirrors their liveness
// into Redis so other instances and operators can see who is signed in.
// Keys: SET exam:session:{id} {username} EX ttl
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.LoginSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.LoginSession),
	}
}

func (s *SessionStore) Put(session *app.LoginSession) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	// best-effort liveness marker
	if err := s.client.Set(context.Background(), sessionKey(session.ID()), session.User().Username, s.ttl).Err(); err != nil {
		log.Printf("session store: mark %s: %v", session.ID(), err)
	}
}

func (s *SessionStore) Get(id string) (*app.LoginSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := s.client.Del(context.Background(), sessionKey(id)).Err(); err != nil {
		log.Printf("session store: clear %s: %v", id, err)
	}
}

func sessionKey(id string) string {
	return "exam:session:" + id
}
