// Package iam implements identity and access management: user accounts
// with argon2id password hashing, roles, scopes, signed session tokens,
// and the scope registry consumed by the startup bootstrap.
//
// Authorisation is two independent gates: role membership (allow-list
// intersection) and scope membership (one required scope string in the
// union of the user's roles' scopes). Scope strings follow the
// "<resource>:<action>" convention, e.g. "devices:create".
package iam
