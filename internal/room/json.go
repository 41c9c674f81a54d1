package room

import "encoding/json"

// reservationEntry mirrors the on-disk two-element-entry shape
// [token, {frameIndex, expiresAt}] for a single reservation.
type reservationEntry struct {
	Token string
	Res   Reservation
}

func (e reservationEntry) MarshalJSON() ([]byte, error) {
	pair := [2]json.RawMessage{}
	tokenJSON, err := json.Marshal(e.Token)
	if err != nil {
		return nil, err
	}
	resJSON, err := json.Marshal(e.Res)
	if err != nil {
		return nil, err
	}
	pair[0] = tokenJSON
	pair[1] = resJSON
	return json.Marshal(pair)
}

func (e *reservationEntry) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &e.Token); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &e.Res)
}

// roomJSON is the wire/disk shape from the persistence layer spec:
// the same fields as Room, with Reservations serialized as an array
// of [token, {frameIndex, expiresAt}] entries and ReservedByFrame
// omitted entirely (it is rebuilt on load).
type roomJSON struct {
	RoomID       string             `json:"roomId"`
	Theme        string             `json:"theme"`
	Frames       [FrameCount]string `json:"frames"`
	Committed    [FrameCount]bool   `json:"committed"`
	CreatedAt    int64              `json:"createdAt"`
	UpdatedAt    int64              `json:"updatedAt"`
	Phase        Phase              `json:"phase"`
	Reservations []reservationEntry `json:"reservations"`
}

func (r *Room) MarshalJSON() ([]byte, error) {
	entries := make([]reservationEntry, 0, len(r.Reservations))
	for token, res := range r.Reservations {
		entries = append(entries, reservationEntry{Token: token, Res: res})
	}
	out := roomJSON{
		RoomID:       r.RoomID,
		Theme:        r.Theme,
		Frames:       r.Frames,
		Committed:    r.Committed,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Phase:        r.Phase,
		Reservations: entries,
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the on-disk shape and rebuilds
// ReservedByFrame from Reservations ∩ (¬Committed), per §4.C. Callers
// must still call Sweep with the current time afterward to drop
// anything that expired while the room was unloaded.
func (r *Room) UnmarshalJSON(data []byte) error {
	var in roomJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	r.RoomID = in.RoomID
	r.Theme = in.Theme
	r.Frames = in.Frames
	r.Committed = in.Committed
	r.CreatedAt = in.CreatedAt
	r.UpdatedAt = in.UpdatedAt
	r.Phase = in.Phase

	r.Reservations = make(map[string]Reservation, len(in.Reservations))
	r.ReservedByFrame = make(map[int]string, len(in.Reservations))
	for _, e := range in.Reservations {
		r.Reservations[e.Token] = e.Res
		idx := e.Res.FrameIndex
		if idx < 0 || idx >= FrameCount || r.Committed[idx] {
			continue
		}
		if _, exists := r.ReservedByFrame[idx]; !exists {
			r.ReservedByFrame[idx] = e.Token
		}
	}
	r.NormalizePhase()
	return nil
}
