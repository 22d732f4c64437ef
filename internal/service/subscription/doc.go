// Package subscription implements the newsletter subscription lifecycle.
//
// A signup is double opt-in: Subscribe persists a pending subscriber and
// mails a verification link, Verify flips the record to verified, and
// Unsubscribe removes it entirely. The service layer contains pure business
// logic and depends on the Repository interface defined in repository.go.
// It never imports net/http or database/sql directly.
//
// Repository implementations live in repository/postgres/.
package subscription
