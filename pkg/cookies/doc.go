// Package cookies turns heterogeneous cookie records into one canonical shape.
//
// Cookie data reaches this package in several forms: *http.Cookie values taken
// from a cookie jar, generic key/value records produced by a browser engine, or
// bare Set-Cookie strings. Normalize accepts any of them and always returns a
// Normalized record. Field lookup follows a fixed precedence per field, and the
// expiry is run through Expiry, which never fails: anything that is not a
// usable instant becomes null.
//
// # Field precedence
//
//	name      key, name, then the text before "=" of a bare string
//	value     value
//	domain    domain
//	path      path
//	expires   expires, expiry
//	httpOnly  httpOnly, HttpOnly
//	secure    secure
//	sameSite  sameSite, samesite
//	raw       raw, otherwise a Set-Cookie style serialization
package cookies
