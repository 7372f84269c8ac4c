// Package notify defines the threshold-crossing notification channel.
//
// Notification delivery is best-effort and decoupled from spend recording:
// the tracker commits the spend first and the crossing event is handed to
// the Notifier afterwards, so delivery failures can never lose spend.
package notify
