package ingest

// State is the coordinator's position in a pass.
type State int32

const (
	StateIdle State = iota
	StateScanning
	StateLoading
	StateDetecting
	StateEvaluating
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateLoading:
		return "loading"
	case StateDetecting:
		return "detecting"
	case StateEvaluating:
		return "evaluating"
	case StateCommitting:
		return "committing"
	}
	return "unknown"
}
