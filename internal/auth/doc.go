// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Polylingo Contributors

// Package auth provides the credential and token core for polylingo.
//
// # Components
//
//   - CredentialStore - one record per username; MemoryStore is the in-process implementation
//   - PasswordHasher - one-way salted hashing (BcryptHasher, Argon2idHasher)
//   - TokenService - issues and validates signed, time-limited bearer tokens
//   - Resolver - turns a bearer token into the current User
//   - Service - registration, credential verification and login
//
// Records are write-once: there is no update, delete or password reset path.
//
// Every failure surfaced to callers is an oops error carrying one of the
// Code* constants so transports can map it without string matching.
package auth
