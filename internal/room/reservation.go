package room

import (
	"github.com/dkeye/frameroom/internal/apperr"
	"github.com/dkeye/frameroom/internal/idgen"
)

// Reserve grants the sole right to commit frameIndex until expiresAt,
// minting a fresh token. Precondition: frameIndex is uncommitted and
// has no live reservation; callers must Sweep first.
func (r *Room) Reserve(frameIndex int, now, expiresAt int64) (string, error) {
	if frameIndex < 0 || frameIndex >= FrameCount {
		return "", apperr.Validation("frame index out of range")
	}
	if r.Committed[frameIndex] {
		return "", apperr.Conflict("frame already committed")
	}
	if _, reserved := r.ReservedByFrame[frameIndex]; reserved {
		return "", apperr.Conflict("frame already reserved")
	}

	token := idgen.NewReservationToken()
	for _, exists := r.Reservations[token]; exists; _, exists = r.Reservations[token] {
		token = idgen.NewReservationToken()
	}

	r.Reservations[token] = Reservation{FrameIndex: frameIndex, ExpiresAt: expiresAt}
	r.ReservedByFrame[frameIndex] = token
	return token, nil
}

// ReserveAny mints a reservation for the first youngest empty frame.
// Returns an error if every frame is either committed or reserved.
func (r *Room) ReserveAny(now, expiresAt int64) (int, string, error) {
	idx, ok := r.FirstYoungestEmpty()
	if !ok {
		return 0, "", apperr.Conflict("no empty frame")
	}
	token, err := r.Reserve(idx, now, expiresAt)
	if err != nil {
		return 0, "", err
	}
	return idx, token, nil
}

// Consume redeems token for frameIndex, requiring it to be present,
// unexpired, and pointed at the same frame. On success both maps are
// cleared of the entry.
func (r *Room) Consume(token string, frameIndex int, now int64) error {
	res, ok := r.Reservations[token]
	if !ok {
		return apperr.Reservation("invalid or expired reservation")
	}
	if res.ExpiresAt <= now {
		delete(r.Reservations, token)
		if r.ReservedByFrame[res.FrameIndex] == token {
			delete(r.ReservedByFrame, res.FrameIndex)
		}
		return apperr.Reservation("invalid or expired reservation")
	}
	if res.FrameIndex != frameIndex {
		return apperr.Conflict("frame mismatch")
	}

	delete(r.Reservations, token)
	if r.ReservedByFrame[res.FrameIndex] == token {
		delete(r.ReservedByFrame, res.FrameIndex)
	}
	return nil
}

// Sweep removes any reservation that is expired, committed, out of
// range, or orphaned (its token no longer matches the live
// ReservedByFrame entry for its frame). Idempotent. Must run at the
// start of any handler that inspects or mutates reservations and
// immediately after deserialization.
func (r *Room) Sweep(now int64) {
	if r.ReservedByFrame == nil {
		r.ReservedByFrame = make(map[int]string)
	}
	if r.Reservations == nil {
		r.Reservations = make(map[string]Reservation)
	}

	for token, res := range r.Reservations {
		expired := res.ExpiresAt <= now
		outOfRange := res.FrameIndex < 0 || res.FrameIndex >= FrameCount
		committed := !outOfRange && r.Committed[res.FrameIndex]
		orphaned := !outOfRange && r.ReservedByFrame[res.FrameIndex] != token
		if expired || outOfRange || committed || orphaned {
			delete(r.Reservations, token)
		}
	}

	for idx, token := range r.ReservedByFrame {
		res, ok := r.Reservations[token]
		stale := !ok || res.FrameIndex != idx
		if stale {
			delete(r.ReservedByFrame, idx)
		}
	}
}
