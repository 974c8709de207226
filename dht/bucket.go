package dht

// BucketMaxLen is the 'K' constant of the Kademlia algorithm: the number
// of live contacts a single bucket holds before new discoveries spill
// into its replacement cache.
const BucketMaxLen = 8

// Bucket holds up to BucketMaxLen live contacts plus a replacement cache
// of contacts that could not be inserted while the bucket was full.
type Bucket struct {
	Live  []Contact
	Extra []Contact
}

func (b *Bucket) IsFull() bool {
	return len(b.Live) >= BucketMaxLen && len(b.Extra) >= BucketMaxLen
}

// GetContacts appends every non-failed live contact to out.
func (b *Bucket) GetContacts(out []*Contact) []*Contact {
	for i := range b.Live {
		if !b.Live[i].Failed() {
			out = append(out, &b.Live[i])
		}
	}
	return out
}

// ReplaceNode evicts the Live contact with the highest fail count, or if
// no Live contact has failed, the Extra contact with the highest fail
// count, and installs contact in its place. Contacts with no failures are
// never evicted. It reports whether a stale slot was found.
func (b *Bucket) ReplaceNode(contact Contact) bool {
	if idx, ok := findStale(b.Live); ok {
		b.Live[idx] = contact
		return true
	}
	if idx, ok := findStale(b.Extra); ok {
		b.Extra[idx] = contact
		return true
	}
	return false
}

func findStale(contacts []Contact) (int, bool) {
	best := -1
	var bestFails uint8
	for i := range contacts {
		fc := contacts[i].FailCount()
		if fc == 0 {
			continue
		}
		if best == -1 || fc > bestFails {
			best = i
			bestFails = fc
		}
	}
	return best, best != -1
}
