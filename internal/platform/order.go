package platform

// Ordering places platforms into a canonical build order.
//
// Switching the active target is expensive, and some targets leave the
// toolchain in a state that is only safe to build last. Priority platforms
// are moved to the front and the terminal platform to the back; everything
// else keeps its relative order.
type Ordering struct {
	Priority Platform // built first when requested
	Terminal Platform // built last when requested
}

// DefaultOrdering builds iOS first and WebGL last.
var DefaultOrdering = Ordering{Priority: IOS, Terminal: WebGL}

// Order expands the requested platforms, drops duplicates, and applies the
// priority and terminal slots. Combined values are expanded in declaration
// order.
func (o Ordering) Order(requested []Platform) []Platform {
	var seen Platform
	var expanded []Platform
	for _, r := range requested {
		for _, p := range r.Expand() {
			if seen&p != 0 {
				continue
			}
			seen |= p
			expanded = append(expanded, p)
		}
	}

	first := make([]Platform, 0, len(expanded))
	middle := make([]Platform, 0, len(expanded))
	last := make([]Platform, 0, 1)
	for _, p := range expanded {
		switch {
		case o.Priority&p != 0:
			first = append(first, p)
		case o.Terminal&p != 0:
			last = append(last, p)
		default:
			middle = append(middle, p)
		}
	}

	out := append(first, middle...)
	return append(out, last...)
}

// Slot names the ordering slot of a platform: "first", "last" or "".
func (o Ordering) Slot(p Platform) string {
	switch {
	case o.Priority&p != 0:
		return "first"
	case o.Terminal&p != 0:
		return "last"
	default:
		return ""
	}
}
