package handshake

// State is a step of the export handshake. Runs move through the states
// in declaration order and never go back.
type State int

const (
	StatePrepare State = iota
	StateBuildIndex
	StateInvokeSelect
	StateReadSelection
	StateValidateSelection
	StateBuildExport
	StateWriteExport
	StateInvokeImport
	StateDone
)

var stateNames = [...]string{
	StatePrepare:           "Prepare",
	StateBuildIndex:        "BuildIndex",
	StateInvokeSelect:      "InvokeSelect",
	StateReadSelection:     "ReadSelection",
	StateValidateSelection: "ValidateSelection",
	StateBuildExport:       "BuildExport",
	StateWriteExport:       "WriteExport",
	StateInvokeImport:      "InvokeImport",
	StateDone:              "Done",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Invalid"
}

// Terminal reports whether no further transition follows s on success.
func (s State) Terminal() bool {
	return s == StateDone
}
