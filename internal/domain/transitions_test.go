package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func allStatuses() []ReportStatus {
	return []ReportStatus{
		StatusReceived, StatusUnderReview, StatusTechnicianAssigned,
		StatusInProgress, StatusResolved, StatusClosed,
	}
}

func TestNoEdgeTargetsReceived(t *testing.T) {
	for _, from := range allStatuses() {
		assert.False(t, CanTransition(from, StatusReceived),
			"%s must not transition back to received", from)
	}
}

func TestNoEdgeLeavesClosed(t *testing.T) {
	for _, to := range allStatuses() {
		assert.False(t, CanTransition(StatusClosed, to),
			"closed must not transition to %s", to)
	}
	assert.True(t, StatusClosed.Terminal())
	assert.Empty(t, AvailableTransitions(StatusClosed))
}

func TestLifecycleEdges(t *testing.T) {
	cases := []struct {
		from    ReportStatus
		to      ReportStatus
		allowed bool
	}{
		{StatusReceived, StatusUnderReview, true},
		{StatusReceived, StatusTechnicianAssigned, true},
		{StatusReceived, StatusInProgress, false},
		{StatusReceived, StatusResolved, false},
		{StatusUnderReview, StatusTechnicianAssigned, true},
		{StatusUnderReview, StatusInProgress, true},
		{StatusUnderReview, StatusResolved, false},
		{StatusTechnicianAssigned, StatusInProgress, true},
		{StatusTechnicianAssigned, StatusResolved, true},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusClosed, false},
		{StatusResolved, StatusClosed, true},
		{StatusResolved, StatusInProgress, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestNoSelfTransitions(t *testing.T) {
	for _, status := range allStatuses() {
		assert.False(t, CanTransition(status, status), "%s -> %s", status, status)
	}
}

func TestEveryStatusHasTimelineMessage(t *testing.T) {
	for _, status := range allStatuses() {
		assert.NotEmpty(t, TransitionMessage(status), "missing message for %s", status)
	}
}

func TestAvailableTransitionsReturnsCopy(t *testing.T) {
	first := AvailableTransitions(StatusReceived)
	first[0] = StatusClosed
	assert.NotEqual(t, first[0], AvailableTransitions(StatusReceived)[0])
}
