// Package auth signs people in by phone number, with the decision made on
// a linked chat account instead of a password or code.
//
// Session lifecycle:
//   - Manager.Create opens a pending AuthSession for a normalized phone
//     number and expires any session still pending for that number. When
//     the number already has a linked chat identity the Notifier prompts it.
//   - Approve and Reject only act on pending sessions. Anything else comes
//     back as ErrSessionNotActionable, terminal states never change.
//   - There is no sweeper. A pending session read after ExpiresAt is stored
//     as expired on that read.
//   - IssueTokens signs a fresh TokenPair for an approved session on every
//     call.
//
// Storage:
//   - SessionStore and UserDirectory are implemented on Bun. The session
//     store's conditional UpdateStatus (WHERE id AND status) is the only
//     synchronization point between concurrent callers.
//
// Side effects:
//   - Notifier, Broadcaster and ActivitySink are best-effort. Their errors
//     are logged and never fail the operation that triggered them.
package auth
