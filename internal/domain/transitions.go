package domain

// allowedTransitions is the single source of truth for the report lifecycle.
// No edge targets received and none leaves closed. The presentation layer
// derives available actions by querying this table, never by re-deriving
// status logic.
var allowedTransitions = map[ReportStatus][]ReportStatus{
	StatusReceived:           {StatusUnderReview, StatusTechnicianAssigned},
	StatusUnderReview:        {StatusTechnicianAssigned, StatusInProgress},
	StatusTechnicianAssigned: {StatusInProgress, StatusResolved},
	StatusInProgress:         {StatusResolved},
	StatusResolved:           {StatusClosed},
	StatusClosed:             {},
}

// transitionMessages carries the human-readable timeline note for each
// target status.
var transitionMessages = map[ReportStatus]string{
	StatusReceived:           "Report received",
	StatusUnderReview:        "Report is being reviewed",
	StatusTechnicianAssigned: "Team assigned to investigate",
	StatusInProgress:         "Repair work in progress",
	StatusResolved:           "Issue resolved",
	StatusClosed:             "Report closed",
}

// CanTransition reports whether the edge from -> to is in the lifecycle graph.
func CanTransition(from, to ReportStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AvailableTransitions returns the target statuses reachable from the given
// status. The returned slice is a copy.
func AvailableTransitions(from ReportStatus) []ReportStatus {
	return append([]ReportStatus{}, allowedTransitions[from]...)
}

// TransitionMessage returns the timeline note for entering the given status.
func TransitionMessage(to ReportStatus) string {
	return transitionMessages[to]
}
