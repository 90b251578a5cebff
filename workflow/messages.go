package workflow

import (
	"fmt"

	"github.com/amonks/rail/train"
)

const (
	msgSelectAccount     = "Please select an account first."
	msgSelectDate        = "Please select a date."
	msgSearching         = "Searching for trains..."
	msgNoTrains          = "No trains found for your criteria."
	msgReserving         = "Initiating reservation..."
	msgCancelling        = "Cancelling task..."
	msgCancelled         = "Task cancelled successfully."
	msgBusy              = "Please wait for the current request to finish."
	msgTaskActive        = "A reservation task is being monitored. Cancel it first."
	msgNotReservable     = "The selected train has no seats to reserve."
	msgNoActiveTask      = "No reservation task is being monitored."
	prefixSearchFailed   = "Failed to search trains: "
	prefixReserveFailed  = "Failed to create reservation task: "
	prefixCancelFailed   = "Failed to cancel task: "
	prefixCancelError    = "Error cancelling task: "
	prefixMonitorFailed  = "Failed to monitor task status: "
	prefixMonitorError   = "Error monitoring task status: "
	prefixGenericFailure = "Error: "
)

func reservationCreatedMessage(id train.TaskID) string {
	return fmt.Sprintf("Reservation task created successfully! Worker will now attempt to book. Monitoring Task ID: %s", id)
}

func watchingMessage(id train.TaskID) string {
	return fmt.Sprintf("Monitoring Task ID: %s", id)
}

func finishedMessage(task train.Task) string {
	return "Task " + task.Summary()
}
