// Package session manages interactive signing sessions.
//
// Types:
//   - Session: Tracks uploaded PDFs, the signature image and the signed output.
//   - SessionManager: Bounded, expiring set of active sessions.
//
// Expected outputs:
// - Session IDs are unique (UUID)
// - Files are tracked per session
// - A session that expires or is evicted for capacity removes its files
//
// Used by API handlers to manage user state.
package session

import (
	"os"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"go-stamppdf/internal/utils"
)

const (
	DefaultCapacity = 256
	DefaultTTL      = 30 * time.Minute
)

type Session struct {
	ID          string
	Files       []string
	Signature   string
	OutputFile  string
	CreatedAt   time.Time
	MergeStatus string
	Mutex       sync.Mutex
}

type SessionManager struct {
	sessions *expirable.LRU[string, *Session]
}

// NewSessionManager keeps at most capacity sessions, each for ttl after it
// was created.
func NewSessionManager(capacity int, ttl time.Duration) *SessionManager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	onEvict := func(_ string, s *Session) {
		s.Cleanup()
	}
	return &SessionManager{sessions: expirable.NewLRU[string, *Session](capacity, onEvict, ttl)}
}

func (sm *SessionManager) CreateSession() *Session {
	session := &Session{
		ID:          utils.GenerateUUID(),
		Files:       []string{},
		CreatedAt:   time.Now(),
		MergeStatus: "idle",
	}
	sm.sessions.Add(session.ID, session)
	return session
}

func (sm *SessionManager) GetSession(id string) (*Session, bool) {
	return sm.sessions.Get(id)
}

// DeleteSession removes the session and its files.
func (sm *SessionManager) DeleteSession(id string) {
	sm.sessions.Remove(id)
}

func (sm *SessionManager) Len() int {
	return sm.sessions.Len()
}

// Purge removes every session and its files.
func (sm *SessionManager) Purge() {
	sm.sessions.Purge()
}

func (s *Session) AddFile(filepath string) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.Files = append(s.Files, filepath)
}

func (s *Session) SetFiles(files []string) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.Files = files
}

func (s *Session) GetFiles() []string {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return append([]string(nil), s.Files...)
}

// SetSignature replaces the session's signature image, removing the
// previous one.
func (s *Session) SetSignature(path string) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.Signature != "" && s.Signature != path {
		os.Remove(s.Signature)
	}
	s.Signature = path
}

func (s *Session) GetSignature() string {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return s.Signature
}

// SetOutput records the signed output, removing the previous one.
func (s *Session) SetOutput(path string) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	if s.OutputFile != "" && s.OutputFile != path {
		os.Remove(s.OutputFile)
	}
	s.OutputFile = path
}

func (s *Session) GetOutput() string {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	return s.OutputFile
}

func (s *Session) SetMergeStatus(status string) {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	s.MergeStatus = status
}

func (s *Session) Cleanup() {
	s.Mutex.Lock()
	defer s.Mutex.Unlock()
	for _, file := range s.Files {
		os.Remove(file)
	}
	if s.Signature != "" {
		os.Remove(s.Signature)
	}
	if s.OutputFile != "" {
		os.Remove(s.OutputFile)
	}
}
