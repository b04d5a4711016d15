// Package utils provides small byte-slice helpers used by the wire codec.
package utils
