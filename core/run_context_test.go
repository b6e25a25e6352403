package core

import (
	"context"
	"testing"
)

func TestRunContext_EmitEventStateAndArtifacts(t *testing.T) {
	rc, emitCh := newRunContextForTest()
	rc.SetState("foo", "bar")
	rc.AddArtifact("file1")

	if err := rc.EmitEvent(NewEvent(rc.RunID, "agent1")); err != nil {
		t.Fatalf("EmitEvent error: %v", err)
	}

	received := <-emitCh
	if received.Actions.StateDelta["foo"].(string) != "bar" {
		t.Fatalf("State delta missing: %+v", received.Actions)
	}
	if received.Actions.ArtifactDelta["file1"] != 1 {
		t.Fatalf("Artifact delta missing: %+v", received.Actions)
	}
	if len(rc.StateDelta) != 0 || len(rc.Artifacts) != 0 {
		t.Fatal("StateDelta & Artifacts should clear after emit")
	}
}

func TestRunContext_EmitEventCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := NewRunContext(ctx, "s", "r", AgentInfo{}, Content{}, 0, make(chan Event), nil, nil, nil, nil, nil)
	rc.SetState("k", "v")

	if err := rc.EmitEvent(NewEvent("r", "a")); err == nil {
		t.Fatal("expected cancellation error")
	}
	if _, ok := rc.StateDelta["k"]; !ok {
		t.Error("StateDelta should be kept when emission fails")
	}
}

func TestRunContext_CommitStateDelta(t *testing.T) {
	rc, _ := newRunContextForTest()
	store := rc.SessionStore.(*rcMockSessionStore)
	rc.SetState("k1", 123)

	if err := rc.CommitStateDelta(); err != nil {
		t.Fatalf("CommitStateDelta error: %v", err)
	}
	if store.applied == nil || store.applied[rc.SessionID]["k1"].(int) != 123 {
		t.Fatalf("State delta not applied: %+v", store.applied)
	}
	if len(rc.StateDelta) != 0 {
		t.Error("StateDelta should be cleared after commit")
	}
}

func TestRunContext_GetStatePrefersDelta(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.Session.SetState("plan", "persisted")

	if got := rc.GetStateString("plan"); got != "persisted" {
		t.Fatalf("expected persisted value, got %q", got)
	}

	rc.SetState("plan", "staged")
	if got := rc.GetStateString("plan"); got != "staged" {
		t.Fatalf("expected staged value, got %q", got)
	}

	rc.SetState("count", 3)
	if got := rc.GetStateString("count"); got != "" {
		t.Fatalf("expected empty string for non-string value, got %q", got)
	}
}

func TestRunContext_SaveArtifact(t *testing.T) {
	rc, _ := newRunContextForTest()

	if err := rc.SaveArtifact("report.md", []byte("# Report")); err != nil {
		t.Fatalf("SaveArtifact error: %v", err)
	}
	data, err := rc.GetArtifact("report.md")
	if err != nil || string(data) != "# Report" {
		t.Fatalf("unexpected artifact %q (%v)", data, err)
	}
	if len(rc.Artifacts) != 1 || rc.Artifacts[0] != "report.md" {
		t.Fatalf("artifact should be staged: %v", rc.Artifacts)
	}
}

func TestRunContext_NewChildContext(t *testing.T) {
	rc, _ := newRunContextForTest()
	rc.SetState("parent", true)

	childEmit := make(chan Event, 1)
	child := rc.NewChildContext(childEmit, nil, "Crew.Planning")

	if child.Session != rc.Session || child.Limiter != rc.Limiter {
		t.Error("child should share session and limiter")
	}
	if len(child.StateDelta) != 0 {
		t.Error("child should start with fresh delta buffer")
	}
	if child.Branch != "Crew.Planning" {
		t.Errorf("unexpected branch %q", child.Branch)
	}

	if err := child.EmitEvent(NewEvent(rc.RunID, "a")); err != nil {
		t.Fatal(err)
	}
	ev := <-childEmit
	if ev.Branch == nil || *ev.Branch != "Crew.Planning" {
		t.Fatalf("branch not propagated: %+v", ev.Branch)
	}
}

func TestModelLimiter(t *testing.T) {
	l := NewModelLimiter(2)
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	if err := l.Increment(); err != nil {
		t.Fatal(err)
	}
	if err := l.Increment(); err == nil {
		t.Fatal("expected limit error")
	}
	if l.Count() != 3 || l.Remaining() != -1 {
		t.Fatalf("unexpected count/remaining: %d/%d", l.Count(), l.Remaining())
	}

	if NewModelLimiter(0).Remaining() != -1 {
		t.Error("unlimited limiter should report -1")
	}
}
