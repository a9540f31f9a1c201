package events

const (
	subjectRunPrefix      = "tpfi.run."
	SubjectWeightsDerived = "tpfi.weights.derived"
)

func SubjectRunStarted(runID string) string   { return subjectRunPrefix + runID + ".started" }
func SubjectRunCompleted(runID string) string { return subjectRunPrefix + runID + ".completed" }
func SubjectRunFailed(runID string) string    { return subjectRunPrefix + runID + ".failed" }

// StreamSubjects lists the wildcards the event stream captures.
func StreamSubjects() []string {
	return []string{subjectRunPrefix + ">", SubjectWeightsDerived}
}
