package notify

// ByContext returns the visible entries whose context equals context.
// The global region is selected with GlobalContext or "".
func ByContext(list []Notification, context string) []Notification {
	if context == "" || context == GlobalContext {
		return Global(list)
	}
	return filter(list, func(n Notification) bool {
		return n.Context == context
	})
}

// Global returns the visible entries of the global region.
func Global(list []Notification) []Notification {
	return filter(list, Notification.IsGlobal)
}

// GlobalErrors returns the visible global entries of type error. It is what
// the region above table views shows.
func GlobalErrors(list []Notification) []Notification {
	return filter(list, func(n Notification) bool {
		return n.IsGlobal() && n.Type == TypeError
	})
}

func filter(list []Notification, keep func(Notification) bool) []Notification {
	var out []Notification
	for _, n := range list {
		if !n.Hidden && keep(n) {
			out = append(out, n)
		}
	}
	return out
}
