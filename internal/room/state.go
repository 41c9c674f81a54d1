package room

// FPS is advertised to clients in every room_state payload; the
// server never renders frames itself, so this is purely informational.
const FPS = 12

// StateView is the room_state payload shape from §6: never includes
// frame payloads, only commit bookkeeping.
type StateView struct {
	RoomID     string           `json:"roomId"`
	Theme      string           `json:"theme"`
	FrameCount int              `json:"frameCount"`
	FPS        int              `json:"fps"`
	Phase      Phase            `json:"phase"`
	CreatedAt  int64            `json:"createdAt"`
	UpdatedAt  int64            `json:"updatedAt"`
	Filled     [FrameCount]bool `json:"filled"`
	Completed  bool             `json:"completed"`
}

// State builds the outward-facing snapshot; callers must have called
// NormalizePhase first.
func (r *Room) State() StateView {
	return StateView{
		RoomID:     r.RoomID,
		Theme:      r.Theme,
		FrameCount: FrameCount,
		FPS:        FPS,
		Phase:      r.Phase,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Filled:     r.Committed,
		Completed:  r.Phase == PhasePlayback,
	}
}
