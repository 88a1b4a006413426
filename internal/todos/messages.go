package todos

// Kind is the severity of a notification
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a user-facing outcome of a controller operation
type Notification struct {
	Message string
	Kind    Kind
}

// User-facing messages
const (
	MsgCreateSuccess     = "Todo created"
	MsgCreateError       = "Failed to create todo"
	MsgUpdateSuccess     = "Todo updated"
	MsgUpdateError       = "Failed to update todo"
	MsgMarkCompleted     = "Todo marked as completed"
	MsgMarkIncomplete    = "Todo marked as incomplete"
	MsgDeleteSuccess     = "Todo deleted"
	MsgDeleteError       = "Failed to delete todo"
	MsgOperationError    = "An error occurred during the operation"
	MsgFetchError        = "Failed to fetch todos"
	MsgFetchErrorGeneral = "An error occurred while fetching todos"
	MsgNotSignedIn       = "You are not signed in"
)

func success(msg string) *Notification {
	return &Notification{Message: msg, Kind: KindSuccess}
}

func failure(msg string) *Notification {
	return &Notification{Message: msg, Kind: KindError}
}
