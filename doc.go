// Package iam provides identity and access management primitives:
// bcrypt credential hashing with a composable password policy, HS256
// JWT issuance and validation, per-client sliding window rate
// limiting, and a JSON HTTP surface for registration, sign in, self
// profile management, and admin user administration.
//
// Access model:
//   - Accounts carry a UserRole (standard or admin) and an active
//     flag. Tokens embed the admin flag at issuance time, so role
//     changes take effect on the next sign in.
//   - Route guards compose: RateLimit throttles per client key,
//     ProtectedRoute validates the bearer token, AdminRoute requires
//     the admin claim. Destructive admin operations additionally
//     reject the caller's own account.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and
//     the HTTP controller to describe registration, login, status, and
//     deletion events. Sinks run best-effort (errors are logged) so
//     you can forward to a database or queue without blocking
//     authentication.
package iam
