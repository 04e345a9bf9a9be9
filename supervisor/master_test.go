// File: supervisor/master_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package supervisor

import "testing"

func TestRemoveKey(t *testing.T) {
	keys := []childKey{
		{listenerID: "a", slot: 0},
		{listenerID: "b", slot: 1},
		{listenerID: "a", slot: 1},
	}
	out := removeKey(keys, childKey{listenerID: "b", slot: 1})
	if len(out) != 2 {
		t.Fatalf("removeKey: got %d keys, want 2", len(out))
	}
	for _, k := range out {
		if k.listenerID == "b" && k.slot == 1 {
			t.Fatal("removeKey did not remove the target key")
		}
	}
}

func TestAggregateErrors(t *testing.T) {
	if err := aggregateErrors(nil, nil); err != nil {
		t.Fatalf("aggregateErrors(nil, nil) = %v, want nil", err)
	}
	err := aggregateErrors(nil, errTest("boom"))
	if err == nil {
		t.Fatal("aggregateErrors should surface a non-nil error")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestMax(t *testing.T) {
	if got := max(1, 2); got != 2 {
		t.Errorf("max(1,2) = %d, want 2", got)
	}
	if got := max(5, 2); got != 5 {
		t.Errorf("max(5,2) = %d, want 5", got)
	}
}
