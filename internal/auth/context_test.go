package auth

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ac := AuthContext{AccountID: 7, Email: "tech@example.com", Name: "Tech One"}
	ctx := WithAuth(context.Background(), ac)

	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected auth context")
	}
	if got != ac {
		t.Errorf("got %+v, want %+v", got, ac)
	}
	if id := AccountID(ctx); id != 7 {
		t.Errorf("AccountID = %d, want 7", id)
	}
}

func TestContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected no auth context on a bare context")
	}
	if id := AccountID(context.Background()); id != 0 {
		t.Errorf("AccountID = %d, want 0", id)
	}
}
