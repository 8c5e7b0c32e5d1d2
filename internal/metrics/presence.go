package metrics

// Results recorded for status writes
const (
	WriteResultWritten = "written"
	WriteResultSkipped = "skipped"
	WriteResultFailed  = "failed"
)

// RecordStatusWrite records the outcome of one status write and how many attempts it used
func (m *Metrics) RecordStatusWrite(result string, attempts int) {
	m.safeExecute("RecordStatusWrite", func() {
		m.StatusWritesTotal.WithLabelValues(result).Inc()
		if attempts > 0 {
			m.StatusWriteAttempts.Observe(float64(attempts))
		}
	})
}

// IncrementWriteConflict counts one lost optimistic concurrency race
func (m *Metrics) IncrementWriteConflict() {
	m.safeExecute("IncrementWriteConflict", func() {
		m.StatusWriteConflicts.Inc()
	})
}

// RecordSignOutSweep records a sweep result ("success" or "failed") and its failed patches
func (m *Metrics) RecordSignOutSweep(success bool, patchFailures int) {
	m.safeExecute("RecordSignOutSweep", func() {
		result := "success"
		if !success {
			result = "failed"
		}
		m.SignOutSweepsTotal.WithLabelValues(result).Inc()
		if patchFailures > 0 {
			m.SignOutPatchFailures.Add(float64(patchFailures))
		}
	})
}

// RecordStatusRead records a read outcome such as "ok", "denied" or "error"
func (m *Metrics) RecordStatusRead(outcome string) {
	m.safeExecute("RecordStatusRead", func() {
		m.StatusReadsTotal.WithLabelValues(outcome).Inc()
	})
}

// RecordMembershipCacheLookup records "hit", "miss" or "error"
func (m *Metrics) RecordMembershipCacheLookup(result string) {
	m.safeExecute("RecordMembershipCacheLookup", func() {
		m.MembershipCacheLookups.WithLabelValues(result).Inc()
	})
}

// RecordPresenceEvent records whether publishing a presence event succeeded
func (m *Metrics) RecordPresenceEvent(err error) {
	m.safeExecute("RecordPresenceEvent", func() {
		result := "published"
		if err != nil {
			result = "failed"
		}
		m.PresenceEventsTotal.WithLabelValues(result).Inc()
	})
}

// FeedOpened and FeedClosed track open websocket feeds
func (m *Metrics) FeedOpened() {
	m.safeExecute("FeedOpened", func() {
		m.FeedConnections.Inc()
	})
}

func (m *Metrics) FeedClosed() {
	m.safeExecute("FeedClosed", func() {
		m.FeedConnections.Dec()
	})
}

// SetOnlineRecords sets the fresh and stale online record gauges
func (m *Metrics) SetOnlineRecords(fresh, stale int64) {
	m.safeExecute("SetOnlineRecords", func() {
		m.OnlineFreshTotal.Set(float64(fresh))
		m.OnlineStaleTotal.Set(float64(stale))
	})
}
