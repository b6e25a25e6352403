package core

import (
	"context"
	"maps"
)

type testLogger struct{}

func (l testLogger) Debug(string, ...any) {}
func (l testLogger) Info(string, ...any)  {}
func (l testLogger) Warn(string, ...any)  {}
func (l testLogger) Error(string, ...any) {}

type rcMockSessionStore struct {
	applied map[string]map[string]any
}

func (s *rcMockSessionStore) Get(id string) (*Session, error)       { return NewSession(id), nil }
func (s *rcMockSessionStore) Create(id string) (*Session, error)    { return NewSession(id), nil }
func (s *rcMockSessionStore) AppendEvent(id string, ev Event) error { return nil }
func (s *rcMockSessionStore) ApplyDelta(id string, delta map[string]any) error {
	if s.applied == nil {
		s.applied = map[string]map[string]any{}
	}
	s.applied[id] = maps.Clone(delta)
	return nil
}

type rcMockArtifactStore struct{ saved map[string]map[string][]byte }

func (a *rcMockArtifactStore) Save(sid, aid string, data []byte) error {
	if a.saved == nil {
		a.saved = map[string]map[string][]byte{}
	}
	if _, ok := a.saved[sid]; !ok {
		a.saved[sid] = map[string][]byte{}
	}
	a.saved[sid][aid] = append([]byte{}, data...)
	return nil
}

func (a *rcMockArtifactStore) Get(sid, aid string) ([]byte, error) {
	if m, ok := a.saved[sid]; ok {
		return m[aid], nil
	}
	return nil, nil
}

func (a *rcMockArtifactStore) List(sid string) ([]string, error) {
	res := []string{}
	for k := range a.saved[sid] {
		res = append(res, k)
	}
	return res, nil
}

func (a *rcMockArtifactStore) Delete(sid, aid string) error { return nil }

func newRunContextForTest() (*RunContext, chan Event) {
	emit := make(chan Event, 5)
	resume := make(chan struct{}, 5)
	sess := NewSession("sess-x")
	return NewRunContext(
		context.Background(), "sess-x", "run-x",
		AgentInfo{Name: "Agent1", Type: "test"}, Content{}, 0,
		emit, resume, sess, &rcMockSessionStore{}, &rcMockArtifactStore{}, testLogger{},
	), emit
}
