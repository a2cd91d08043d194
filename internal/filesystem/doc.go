// Package filesystem provides the file-existence probe injected into the
// thumbnail cache, with retry logic for transient NFS stale file handle
// errors.
package filesystem
