package lifecycle

// User identifies the person behind an update.
type User struct {
	ID       int64
	Username string
}

// Event is an inbound update understood by the Controller.
// The set is closed: only types in this package implement it.
type Event interface {
	isEvent()
}

// StartCommand is the /start command.
type StartCommand struct {
	User   User
	ChatID int64
}

// ContentMessage is a text and/or photo message from a user.
// PhotoID is the file id of the largest photo size, empty when there is none.
type ContentMessage struct {
	User    User
	ChatID  int64
	Text    string
	PhotoID string
}

// ActionEvent is a button press or its command alias. Message is the message
// carrying the buttons and is nil when the action came from a command.
type ActionEvent struct {
	User       User
	ChatID     int64
	Action     Action
	Message    *MessageRef
	CallbackID string
}

// UnhandledError reports a failure while processing an update.
// User is nil when the update cannot be attributed to anyone.
type UnhandledError struct {
	User       *User
	ChatID     int64
	CallbackID string
	Err        error
}

func (StartCommand) isEvent()   {}
func (ContentMessage) isEvent() {}
func (ActionEvent) isEvent()    {}
func (UnhandledError) isEvent() {}
