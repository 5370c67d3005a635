package transport

// maxTrackedNonces bounds the per-peer replay window. Oldest entries are
// evicted first; a nonce older than the window is caught by the timestamp
// check instead.
const maxTrackedNonces = 4096

// ReplayState is the per-peer inbound protection: the next sequence number
// we will accept and the set of recently seen nonces.
type ReplayState struct {
	ExpectedSeq uint64
	nonces      map[string]struct{}
	order       []string
}

// NewReplayState starts a replay window expecting the first message.
func NewReplayState() *ReplayState {
	return &ReplayState{
		ExpectedSeq: 1,
		nonces:      make(map[string]struct{}),
	}
}

// RestoreReplayState rebuilds a window from persisted state.
func RestoreReplayState(expectedSeq uint64, nonces []string) *ReplayState {
	rs := &ReplayState{
		ExpectedSeq: expectedSeq,
		nonces:      make(map[string]struct{}, len(nonces)),
		order:       append([]string(nil), nonces...),
	}
	for _, n := range nonces {
		rs.nonces[n] = struct{}{}
	}
	return rs
}

// Seen reports whether the nonce was already accepted.
func (r *ReplayState) Seen(nonce string) bool {
	_, ok := r.nonces[nonce]
	return ok
}

// Accept records a nonce and advances the expected sequence number. Called
// only after every validation step passed.
func (r *ReplayState) Accept(nonce string) {
	if len(r.order) >= maxTrackedNonces {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.nonces, oldest)
	}
	r.nonces[nonce] = struct{}{}
	r.order = append(r.order, nonce)
	r.ExpectedSeq++
}

// Nonces returns the tracked nonces oldest-first, for persistence.
func (r *ReplayState) Nonces() []string {
	return append([]string(nil), r.order...)
}
