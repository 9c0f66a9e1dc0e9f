package solver

// User-facing messages shown in State.ErrorText.
const (
	// MsgCameraUnavailable is shown when the camera cannot be acquired.
	MsgCameraUnavailable = "Unable to access camera. Please check permissions."

	// MsgProcessingFailed is shown when a capture could not be analyzed.
	MsgProcessingFailed = "Error processing the image. Please try again."
)
