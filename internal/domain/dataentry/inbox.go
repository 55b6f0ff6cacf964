package dataentry

import (
	"context"
	"sync"

	"github.com/rpggio/tallysheet/internal/domain/lifecycle"
)

// Inbox collects what a session would show its user: notifications and the
// most recent navigation request. It is the session's Notifier and Navigator.
type Inbox struct {
	mu            sync.Mutex
	notifications []lifecycle.Notification
	navigation    *lifecycle.Target
}

// Notify queues a notification.
func (in *Inbox) Notify(_ context.Context, n lifecycle.Notification) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.notifications = append(in.notifications, n)
}

// NavigateTo records the navigation request.
func (in *Inbox) NavigateTo(target lifecycle.Target) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.navigation = &target
}

// Drain returns and clears the queued notifications.
func (in *Inbox) Drain() []lifecycle.Notification {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.notifications
	in.notifications = nil
	return out
}

// Navigation returns the pending navigation target, if any.
func (in *Inbox) Navigation() *lifecycle.Target {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.navigation == nil {
		return nil
	}
	t := *in.navigation
	return &t
}
