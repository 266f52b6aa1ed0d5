// Package auth provides authentication and session handling for Gray Logic Access.
//
// It implements:
//   - Argon2id password hashing with constant-time verification
//   - RS256 access and refresh tokens whose "type" claim prevents one kind
//     being replayed as the other
//   - An authenticator for email and password login
//   - A session guard that resolves bearer tokens to users and enforces the
//     active-account and administrator gates
//   - The SQLite user store, including role assignments
//
// Tokens are stateless. There is no revocation list: a token stays valid until
// it expires, and refreshing does not rotate the refresh token.
package auth
