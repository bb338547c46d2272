// Package auth provides account authentication for the EDU TRIAL platform:
// email verified registration, credential login, stateless JWT access tokens
// and per request authorization, backed by Bun repositories.
//
// Account lifecycle:
//   - OTPManager registers accounts disabled with a short lived numeric code,
//     mails the code through a MailDispatcher and enables the account once
//     the code is verified. Codes can be resent while the account is disabled,
//     subject to a ResendThrottle.
//   - Verification consumes the code with a single conditional update, so at
//     most one concurrent verification of a code succeeds.
//
// Tokens and requests:
//   - Auther checks credentials through an IdentityProvider and issues HS256
//     tokens naming the account email. Tokens carry no role: the jwtware
//     middleware reloads the account on every request and stores an
//     IdentityContext in the fiber Locals and the request context.
//   - Requirement, Authorize, RequireAuth and RoutePolicy decide access from
//     that IdentityContext.
//
// Errors:
//   - Every failure carries an ErrorCode (CodeOf). NewErrorHandler maps codes
//     to HTTP statuses and ErrorResponse bodies at the fiber boundary.
//
// Auditing:
//   - Registration, verification, login, logout and password changes emit an
//     ActivityEvent. LoggingActivitySink and Metrics consume them; a failing
//     sink is logged and never fails the request.
package auth
