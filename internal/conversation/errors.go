package conversation

import "errors"

var (
	// ErrNoSender is returned for inbound messages without a channel address.
	ErrNoSender = errors.New("conversation: message has no sender")

	// ErrDependency wraps failures of the session store, ledger, or
	// extractor. The user has been told to retry and no step was advanced.
	ErrDependency = errors.New("conversation: dependency failure")

	// ErrNotifyFailed is returned when state was applied but the reply could
	// not be delivered.
	ErrNotifyFailed = errors.New("conversation: reply not delivered")

	// ErrSessionNotCleared is returned when the email was bound to a code but
	// the session could not be deleted. The registration stands.
	ErrSessionNotCleared = errors.New("conversation: registration complete but session not cleared")
)
