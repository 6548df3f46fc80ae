// Package uniuri generates cryptographically secure random strings suitable
// for use as unique identifiers, such as the OIDC login state tokens.
// It provides functions to create random strings with configurable length
// and character sets.
package uniuri
