package presence

// Stage identifies where a presence operation failed.
type Stage string

const (
	StageConstruct     Stage = "create client"
	StageHandshake     Stage = "connect"
	StageSetActivity   Stage = "set activity"
	StageClearActivity Stage = "clear activity"
)

// Error is returned by Session operations. Msg carries the message of the
// underlying client error.
type Error struct {
	Stage Stage
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "failed to " + string(e.Stage)
	}
	return "failed to " + string(e.Stage) + ": " + e.Msg
}

// Is reports whether target is an *Error for the same stage, so the sentinel
// values below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Stage == e.Stage && (t.Msg == "" || t.Msg == e.Msg)
}

// Sentinel errors for errors.Is checks.
var (
	ErrConstructionFailed  = &Error{Stage: StageConstruct}
	ErrHandshakeFailed     = &Error{Stage: StageHandshake}
	ErrActivitySetFailed   = &Error{Stage: StageSetActivity}
	ErrActivityClearFailed = &Error{Stage: StageClearActivity}
)

func newError(stage Stage, err error) *Error {
	return &Error{Stage: stage, Msg: err.Error()}
}
