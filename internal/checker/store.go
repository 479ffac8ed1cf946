package checker

import (
	"sync"

	"github.com/google/uuid"
)

// Store 内存会话存储
type Store struct {
	sessions map[string]*Session
	opts     Options
	mu       sync.RWMutex
}

// NewStore 创建会话存储
func NewStore(opts Options) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

// Create 新建会话
func (s *Store) Create() *Session {
	session := NewSession(uuid.New().String(), s.opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	return session
}

// Get 获取会话
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Delete 删除会话并清理解压目录
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Count 会话数量
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Clear 关闭并清空所有会话
func (s *Store) Clear() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}
