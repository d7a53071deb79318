package notify_test

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kaushik2901/async-endpoints/internal/notify"
)

func TestNilNotifierAnnounceIsNoop(t *testing.T) {
	var n *notify.Notifier
	n.Announce("echo") // must not panic
}

func TestNilNotifierCloseIsNoop(t *testing.T) {
	var n *notify.Notifier
	n.Close() // must not panic
}

func TestNilNotifierSubscribeReturnsNoopUnsubscribe(t *testing.T) {
	var n *notify.Notifier
	unsubscribe, err := n.Subscribe("echo", func() {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := unsubscribe(); err != nil {
		t.Fatalf("expected no-op unsubscribe to succeed, got %v", err)
	}
}

func TestConnectRejectsMalformedURL(t *testing.T) {
	_, err := notify.Connect("://not-a-valid-url", zap.NewNop())
	if err == nil {
		t.Fatal("expected connect with a malformed URL to fail")
	}
}
