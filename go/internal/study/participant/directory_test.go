package participant

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/studyroom/go/internal/models"
)

func profile(name string) models.Profile {
	return models.Profile{DisplayName: name, AvatarURL: "https://img/" + name}
}

func TestJoinAndResolve(t *testing.T) {
	d := NewDirectory(clockwork.NewFakeClock(), RetentionRetain)

	if _, ok := d.ResolveSession("alice"); ok {
		t.Fatal("ResolveSession() found an unknown participant")
	}

	p := d.Join("alice", "room-1", profile("Alice"), models.RoleLeader)
	if !p.Present || p.CurrentSessionID != "room-1" || p.Role != models.RoleLeader {
		t.Errorf("Join() = %+v", p)
	}

	got, ok := d.ResolveSession("alice")
	if !ok || got != "room-1" {
		t.Errorf("ResolveSession() = %q, %v; want room-1", got, ok)
	}
}

func TestJoinReplacesRecord(t *testing.T) {
	d := NewDirectory(clockwork.NewFakeClock(), RetentionRetain)
	d.Join("alice", "room-1", profile("Alice"), models.RoleMember)
	d.Join("alice", "room-2", profile("Alice2"), models.RoleLeader)

	p, ok := d.Get("alice")
	if !ok {
		t.Fatal("Get() missing participant")
	}
	if p.CurrentSessionID != "room-2" || p.DisplayName != "Alice2" || p.Role != models.RoleLeader {
		t.Errorf("Get() = %+v, want replaced record", p)
	}
	if len(d.Members("room-1")) != 0 {
		t.Error("participant must belong to a single room at a time")
	}
	if d.Len() != 1 {
		t.Errorf("Len() = %d, want 1", d.Len())
	}
}

func TestMembersInJoinOrder(t *testing.T) {
	d := NewDirectory(clockwork.NewFakeClock(), RetentionRetain)
	for _, id := range []string{"c", "a", "b"} {
		d.Join(id, "room", profile(id), models.RoleMember)
	}
	d.Join("x", "other", profile("x"), models.RoleMember)

	got := d.Members("room")
	if len(got) != 3 {
		t.Fatalf("Members() len = %d, want 3", len(got))
	}
	for i, want := range []string{"c", "a", "b"} {
		if got[i].ID != want {
			t.Errorf("Members()[%d] = %s, want %s", i, got[i].ID, want)
		}
	}
}

func TestLeaveRetainKeepsMapping(t *testing.T) {
	d := NewDirectory(clockwork.NewFakeClock(), RetentionRetain)
	d.Join("alice", "room", profile("Alice"), models.RoleMember)

	before, ok := d.Leave("alice")
	if !ok || before.DisplayName != "Alice" {
		t.Fatalf("Leave() = %+v, %v", before, ok)
	}

	if len(d.Members("room")) != 0 {
		t.Error("departed participant still listed as present")
	}
	if sid, ok := d.ResolveSession("alice"); !ok || sid != "room" {
		t.Errorf("ResolveSession() = %q, %v; retain policy must keep the mapping", sid, ok)
	}
}

func TestLeavePurgeDropsEntry(t *testing.T) {
	d := NewDirectory(clockwork.NewFakeClock(), RetentionPurge)
	d.Join("alice", "room", profile("Alice"), models.RoleMember)
	d.Leave("alice")

	if _, ok := d.ResolveSession("alice"); ok {
		t.Error("purge policy must drop the session mapping")
	}
	if _, ok := d.Leave("alice"); ok {
		t.Error("second Leave() must report absence")
	}
}

func TestParseRetentionPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    RetentionPolicy
		wantErr bool
	}{
		{"", RetentionRetain, false},
		{"retain", RetentionRetain, false},
		{"purge", RetentionPurge, false},
		{"forever", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRetentionPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRetentionPolicy(%q) = %q, %v", tt.in, got, err)
		}
	}
}
