package appointment

// Diff compares two snapshots as sets. Added holds what is in next but not in
// prev, Removed holds what is in prev but not in next. Duplicates inside a
// snapshot collapse and the result order is unspecified.
func Diff(prev, next []Appointment) (added, removed []Appointment) {
	prevSet := index(prev)
	nextSet := index(next)

	for k, a := range nextSet {
		if _, ok := prevSet[k]; !ok {
			added = append(added, a)
		}
	}
	for k, a := range prevSet {
		if _, ok := nextSet[k]; !ok {
			removed = append(removed, a)
		}
	}
	return added, removed
}

// SameSet reports whether both snapshots contain the same appointments.
func SameSet(a, b []Appointment) bool {
	as, bs := index(a), index(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

// Dedupe drops repeated appointments, keeping the first occurrence.
func Dedupe(snapshot []Appointment) []Appointment {
	seen := make(map[slotKey]struct{}, len(snapshot))
	out := make([]Appointment, 0, len(snapshot))
	for _, a := range snapshot {
		k := a.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}

func index(snapshot []Appointment) map[slotKey]Appointment {
	m := make(map[slotKey]Appointment, len(snapshot))
	for _, a := range snapshot {
		m[a.key()] = a
	}
	return m
}
