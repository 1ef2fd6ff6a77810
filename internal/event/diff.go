package event

// Signal is a candidate derived fact computed from a before/after snapshot
// pair. Signals never consult history beyond the pair; cross-invocation
// memory lives in the per-document flags checked by the pipeline.
type Signal int

const (
	SignalMeetingCreated Signal = iota
	SignalMeetingFull
	SignalMeetingHalfFull
	SignalMeetingAlmostFull
	SignalGameFinished
	SignalUserCreated
)

func (s Signal) String() string {
	switch s {
	case SignalMeetingCreated:
		return "meeting_created"
	case SignalMeetingFull:
		return "meeting_full"
	case SignalMeetingHalfFull:
		return "meeting_half_full"
	case SignalMeetingAlmostFull:
		return "meeting_almost_full"
	case SignalGameFinished:
		return "game_finished"
	case SignalUserCreated:
		return "user_created"
	default:
		return "unknown"
	}
}

// MeetingSignals computes the signals a meeting snapshot change warrants.
// before is nil on creation. Pure; no error cases.
func MeetingSignals(before, after *Meeting) []Signal {
	if after == nil {
		return nil
	}
	if before == nil {
		return []Signal{SignalMeetingCreated}
	}

	c0, c1 := before.CurrentParticipants, after.CurrentParticipants
	if c0 == c1 {
		return nil
	}
	m := after.MaxParticipants
	if m <= 0 {
		// Undefined fill ratio: no crossing signal can fire.
		return nil
	}

	var signals []Signal
	if c1 >= m && c0 < m {
		signals = append(signals, SignalMeetingFull)
	}
	half := float64(m) / 2
	if float64(c1) >= half && float64(c0) < half {
		signals = append(signals, SignalMeetingHalfFull)
	}
	if after.Status == MeetingRecruiting && float64(c1)/float64(m) >= almostFullRatio {
		signals = append(signals, SignalMeetingAlmostFull)
	}
	return signals
}

// GameSignals fires on the transition into "finished". A no-op write that
// keeps the status at "finished" yields nothing.
func GameSignals(before, after *Game) []Signal {
	if after == nil || after.Status != GameFinished {
		return nil
	}
	if before != nil && before.Status == GameFinished {
		return nil
	}
	return []Signal{SignalGameFinished}
}

// UserSignals fires on user creation only.
func UserSignals(before, after *User) []Signal {
	if after == nil || before != nil {
		return nil
	}
	return []Signal{SignalUserCreated}
}
