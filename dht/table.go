package dht

import (
	"net"
	"sort"
	"time"
)

// NumBuckets is the number of buckets in a routing table: one per
// possible XOR-distance bit length for a 160-bit ID space.
const NumBuckets = IDLen * 8

// bucketRefreshInterval is how long a bucket can go unqueried before
// next_refresh schedules a bootstrap or a ping against its stalest node.
const bucketRefreshInterval = 15 * time.Minute

// RefreshAction describes what RoutingTable.NextRefresh would like the
// caller to do: either ping a specific known-stale contact, or run a
// bootstrap lookup toward a random target with as many leading zero bits
// as the index of a bucket that is not full.
type RefreshAction struct {
	Ping      bool
	ID        ID
	Addr      *net.UDPAddr
	Bootstrap bool
	Target    ID
}

// RoutingTable is a fixed array of 160 buckets, one per possible
// leading-zero count of XOR(rootID, contactID). Unlike a dynamically
// splitting tree, the bucket a contact belongs to never changes and
// buckets never merge or split.
type RoutingTable struct {
	RootID      ID
	Buckets     [NumBuckets]Bucket
	timeouts    [NumBuckets]time.Time
	RouterNodes map[string]struct{}
}

// NewRoutingTable returns a table rooted at rootID. routerNodes are
// bootstrap-only addresses that are never added as regular contacts.
func NewRoutingTable(rootID ID, routerNodes []*net.UDPAddr, now time.Time) *RoutingTable {
	rt := &RoutingTable{
		RootID:      rootID,
		RouterNodes: make(map[string]struct{}, len(routerNodes)),
	}
	for i := range rt.timeouts {
		rt.timeouts[i] = now.Add(bucketRefreshInterval)
	}
	for _, a := range routerNodes {
		rt.RouterNodes[a.String()] = struct{}{}
	}
	return rt
}

func (rt *RoutingTable) idxOf(id ID) int { return rt.RootID.XorLeadingZeros(id) }

// NextTimeout returns the earliest bucket deadline in the table.
func (rt *RoutingTable) NextTimeout() time.Time {
	min := rt.timeouts[0]
	for _, t := range rt.timeouts[1:] {
		if t.Before(min) {
			min = t
		}
	}
	return min
}

// NextRefresh checks whether any bucket's deadline has passed and, if
// so, returns the action needed to refresh it: ping the stalest node if
// the bucket is full, otherwise bootstrap toward a random target with
// as many leading zero bits as the bucket's index.
func (rt *RoutingTable) NextRefresh(now time.Time) (RefreshAction, bool) {
	idx := -1
	for i, t := range rt.timeouts {
		if now.After(t) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return RefreshAction{}, false
	}

	rt.timeouts[idx] = now.Add(bucketRefreshInterval)
	bucket := &rt.Buckets[idx]

	if bucket.IsFull() {
		var stalest *Contact
		var stalestFails uint8
		consider := func(c *Contact) {
			fc := c.FailCount()
			if stalest == nil || fc > stalestFails {
				stalest = c
				stalestFails = fc
			}
		}
		for i := range bucket.Live {
			consider(&bucket.Live[i])
		}
		for i := range bucket.Extra {
			consider(&bucket.Extra[i])
		}
		if stalest == nil {
			return RefreshAction{}, false
		}
		return RefreshAction{Ping: true, ID: stalest.ID, Addr: stalest.Addr}, true
	}

	target := GenID().maskLeadingZeros(idx)
	return RefreshAction{Bootstrap: true, Target: target}, true
}

// AddContact inserts or refreshes a contact. When the live set is full,
// a confirmed contact replaces the contact with the most failures and an
// unconfirmed one goes to the replacement cache. It reports whether the
// contact now occupies a slot in the table.
func (rt *RoutingTable) AddContact(contact ContactRef, now time.Time) bool {
	if _, isRouter := rt.RouterNodes[contact.Addr.String()]; isRouter {
		return false
	}
	if rt.RootID == contact.ID {
		return false
	}

	idx := rt.idxOf(contact.ID)
	bucket := &rt.Buckets[idx]
	timeout := &rt.timeouts[idx]

	for i := range bucket.Live {
		c := &bucket.Live[i]
		if c.ID == contact.ID {
			if !sameAddr(c.Addr, contact.Addr) {
				return false
			}
			c.SetConfirmed()
			*timeout = now.Add(bucketRefreshInterval)
			return true
		}
	}

	owned := contact.AsOwned()

	for i := range bucket.Extra {
		c := &bucket.Extra[i]
		if c.ID == contact.ID {
			if !sameAddr(c.Addr, contact.Addr) {
				return false
			}
			c.SetConfirmed()
			owned = bucket.Extra[i]
			bucket.Extra = append(bucket.Extra[:i], bucket.Extra[i+1:]...)
			break
		}
	}

	if len(bucket.Live) < BucketMaxLen {
		bucket.Live = append(bucket.Live, owned)
		*timeout = now.Add(bucketRefreshInterval)
		return true
	}

	if owned.IsConfirmed() {
		if bucket.ReplaceNode(owned) {
			*timeout = now.Add(bucketRefreshInterval)
			return true
		}
		return false
	}

	// Bucket's live set is full and the newcomer isn't confirmed: cache
	// it in the replacement set until a live contact fails.
	for i := range bucket.Extra {
		if sameAddr(bucket.Extra[i].Addr, owned.Addr) {
			bucket.Extra[i].SetPinged()
			return true
		}
	}

	if len(bucket.Extra) >= BucketMaxLen {
		removed := false
		for i := range bucket.Extra {
			if !bucket.Extra[i].IsPinged() {
				bucket.Extra = append(bucket.Extra[:i], bucket.Extra[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			if bucket.ReplaceNode(owned) {
				*timeout = now.Add(bucketRefreshInterval)
				return true
			}
			return false
		}
	}

	bucket.Extra = append(bucket.Extra, owned)
	*timeout = now.Add(bucketRefreshInterval)
	return true
}

func sameAddr(a, b *net.UDPAddr) bool { return a.IP.Equal(b.IP) && a.Port == b.Port }

// FindClosest returns the count contacts (across the home bucket and its
// widening neighborhood) with IDs closest to target under the XOR
// metric, nearest first.
func (rt *RoutingTable) FindClosest(target ID, count int) []*Contact {
	out := make([]*Contact, 0, count)

	bucketNo := rt.idxOf(target)
	out = rt.Buckets[bucketNo].GetContacts(out)

	length := len(rt.Buckets)
	for i := 1; len(out) < count && (i <= bucketNo || bucketNo+i < length); i++ {
		if i <= bucketNo {
			out = rt.Buckets[bucketNo-i].GetContacts(out)
		}
		if bucketNo+i < length {
			out = rt.Buckets[bucketNo+i].GetContacts(out)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return target.Xor(out[i].ID).Less(target.Xor(out[j].ID))
	})
	if len(out) > count {
		out = out[:count]
	}
	return out
}

// Len returns the number of live contacts across all buckets.
func (rt *RoutingTable) Len() int {
	n := 0
	for i := range rt.Buckets {
		n += len(rt.Buckets[i].Live)
	}
	return n
}

// LenExtra returns the number of replacement-cache contacts across all
// buckets.
func (rt *RoutingTable) LenExtra() int {
	n := 0
	for i := range rt.Buckets {
		n += len(rt.Buckets[i].Extra)
	}
	return n
}

func (rt *RoutingTable) IsEmpty() bool { return rt.Len() == 0 }

// FindContact returns a pointer to the live contact with the given ID,
// if any.
func (rt *RoutingTable) FindContact(id ID) *Contact {
	idx := rt.idxOf(id)
	bucket := &rt.Buckets[idx]
	for i := range bucket.Live {
		if bucket.Live[i].ID == id {
			return &bucket.Live[i]
		}
	}
	return nil
}

// Failed records a query timeout against the named contact, if it is
// still present in the table.
func (rt *RoutingTable) Failed(id ID) {
	if c := rt.FindContact(id); c != nil {
		c.TimedOut()
	}
}

// HeardFrom marks the named contact alive and resets its bucket's
// refresh deadline.
func (rt *RoutingTable) HeardFrom(id ID, now time.Time) {
	idx := rt.idxOf(id)
	bucket := &rt.Buckets[idx]
	for i := range bucket.Live {
		c := &bucket.Live[i]
		if c.ID == id {
			c.Status = StatusAlive | StatusQueried
			c.ClearTimeout()
			rt.timeouts[idx] = now.Add(bucketRefreshInterval)
			return
		}
	}
}
