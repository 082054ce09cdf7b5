package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/frahmantamala/gatepass/internal/dashboard"
)

// terminalNotifier prints notifications the way the web client showed toasts.
type terminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func (n *terminalNotifier) Notify(_ context.Context, note dashboard.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	marker := "✓"
	if note.Variant == dashboard.VariantDestructive {
		marker = "✗"
	}
	fmt.Fprintf(n.out, "%s %s\n", marker, note.Title)
	if note.Description != "" {
		fmt.Fprintf(n.out, "  %s\n", note.Description)
	}
}

// terminalNavigator records the current route and tells the user where to go.
type terminalNavigator struct {
	mu    sync.Mutex
	out   io.Writer
	route string
}

func (n *terminalNavigator) Navigate(_ context.Context, route string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if route == n.route {
		return
	}
	n.route = route
	if route == dashboard.RouteLanding {
		fmt.Fprintln(n.out, "→ signed out. Run `gatepass login` to continue.")
		return
	}
	fmt.Fprintf(n.out, "→ %s\n", route)
}

func (n *terminalNavigator) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}
