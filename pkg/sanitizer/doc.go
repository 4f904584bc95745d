// Package sanitizer provides input normalization for reservation data.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings or empty slices rather than errors.
//
// Normalization includes:
//   - Room names: Collapse whitespace, trim leading/trailing spaces - " Room   101 " becomes "Room 101"
//   - Resource IDs: Lowercase, letters and digits joined by hyphens - "Room 101 (East)" becomes "room-101-east"
//   - Emails: Trim and lowercase
//   - Notes: Trim and drop control characters, keep line breaks
//   - Slices: Remove duplicates and empty values after normalization
package sanitizer
