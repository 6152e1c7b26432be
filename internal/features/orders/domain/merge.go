package domain

// Merge reconciles a freshly fetched order against a previously cached
// copy of the same order, matched by ID. The fresh record carries the
// latest server data, so its display fields win; the status is decided
// by precedence rules because a view's local cache may have observed a
// newer status through a different code path between refreshes.
//
// Rules, in order:
//  1. no cached copy: the fresh order is returned as-is, normalized.
//  2. a freshly observed absorbing status (rejected) wins unconditionally.
//  3. a cached absorbing status wins: an order must not be un-rejected
//     by a later, possibly stale, fetch.
//  4. otherwise the higher rank wins; on equal rank the fresh value is
//     treated as more current and wins.
//
// Merge is idempotent: merging its own result against the same cached
// list yields the same status again.
func Merge(fresh Order, cached []Order) Order {
	merged := fresh
	merged.Status = Normalize(string(fresh.Status))

	prev, found := findByID(cached, fresh.ID)
	if !found {
		return merged
	}

	backfillDisplayFields(&merged, prev)

	freshStatus := merged.Status
	cachedStatus := Normalize(string(prev.Status))

	switch {
	case freshStatus.IsAbsorbing():
		merged.Status = freshStatus
	case cachedStatus.IsAbsorbing():
		merged.Status = cachedStatus
	case freshStatus.Rank() >= cachedStatus.Rank():
		merged.Status = freshStatus
	default:
		merged.Status = cachedStatus
	}

	if merged.Status == StatusNotDelivered && merged.FailureReason == "" {
		merged.FailureReason = prev.FailureReason
	}

	return merged
}

// findByID locates an order in the cached list by string-equal ID.
func findByID(orders []Order, id string) (Order, bool) {
	for _, o := range orders {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// backfillDisplayFields fills fields the fresh record is missing from
// the cached copy. Display data is last-writer but never overwritten
// with an empty value.
func backfillDisplayFields(merged *Order, prev Order) {
	if merged.DeliveryAddress == "" {
		merged.DeliveryAddress = prev.DeliveryAddress
	}
	if merged.CustomerName == "" {
		merged.CustomerName = prev.CustomerName
	}
	if merged.CustomerEmail == "" {
		merged.CustomerEmail = prev.CustomerEmail
	}
	if merged.PharmacyName == "" {
		merged.PharmacyName = prev.PharmacyName
	}
	if merged.PharmacyAddress == "" {
		merged.PharmacyAddress = prev.PharmacyAddress
	}
	if len(merged.LineItems) == 0 {
		merged.LineItems = prev.LineItems
	}
	if merged.CreatedAt.IsZero() {
		merged.CreatedAt = prev.CreatedAt
	}
}
