package lifecycle

// MessageKey identifies a catalogue message.
type MessageKey string

const (
	MsgNotReachable  MessageKey = "error_tallysheet_not_reachable"
	MsgSaveFailed    MessageKey = "error_tallysheet_save"
	MsgInputInvalid  MessageKey = "error_input"
	MsgSubmitSuccess MessageKey = "success_pre41_submit"
	MsgSubmitFailed  MessageKey = "error_tallysheet_submit"
)

const (
	TitleError   = "Error"
	TitleSuccess = "Success"
)

var messagesEN = map[MessageKey]string{
	MsgNotReachable:  "Tally sheet is not reachable. Please try again.",
	MsgSaveFailed:    "Error saving the tally sheet.",
	MsgInputInvalid:  "Input is invalid. Please check the highlighted fields.",
	MsgSubmitSuccess: "Tally sheet submitted successfully.",
	MsgSubmitFailed:  "Error submitting the tally sheet.",
}

// Message returns the English text for key, or the key itself.
func Message(key MessageKey) string {
	if msg, ok := messagesEN[key]; ok {
		return msg
	}
	return string(key)
}

func errorNotification(key MessageKey) Notification {
	return Notification{Title: TitleError, Message: Message(key), Severity: SeverityError}
}

func successNotification(key MessageKey) Notification {
	return Notification{Title: TitleSuccess, Message: Message(key), Severity: SeveritySuccess}
}
