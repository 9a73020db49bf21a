package status

// Status represents call processing status
type Status int

const (
	// Uploaded - initial value, set by the upload service
	Uploaded Status = iota + 1
	// Fetching - workflow loads the record
	Fetching
	// Transcribing - audio is sent to the transcription service
	Transcribing
	// Evaluating - transcription is sent to the scoring service
	Evaluating
	// Updating - evaluation is being committed
	Updating
	// Completed - final OK step
	Completed
	// Failed - final failure step, reachable from every non-terminal status
	Failed
)

var (
	statusName = map[Status]string{Uploaded: "UPLOADED", Fetching: "FETCHING",
		Transcribing: "TRANSCRIBING", Evaluating: "EVALUATING", Updating: "UPDATING",
		Completed: "COMPLETED", Failed: "FAILED"}
	nameStatus = map[string]Status{"UPLOADED": Uploaded, "FETCHING": Fetching,
		"TRANSCRIBING": Transcribing, "EVALUATING": Evaluating, "UPDATING": Updating,
		"COMPLETED": Completed, "FAILED": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// IsTerminal indicates that no workflow step may follow
func (st Status) IsTerminal() bool {
	return st == Completed || st == Failed
}

// Step returns the position of the status in the forward transition chain.
// A workflow run never moves to a smaller step except when it jumps to Failed
func (st Status) Step() int {
	return int(st)
}
