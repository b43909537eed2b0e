// Package model defines the persistent records of the user center and the
// response views built from them.
package model
