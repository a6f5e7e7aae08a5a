// Package workspace implements the per-directory sync unit.
//
// A Unit owns one working directory and serializes every backend
// invocation against it behind a single mutex, so an autopush triggered by
// the file watcher and a pull requested over the trigger channel never
// interleave their command sequences. Different units share nothing and run
// fully in parallel.
//
// Push/pull policy:
//
//	Pull:     pull --no-rebase --commit -X theirs, then push
//	Autopush: status --porcelain; if dirty: add ., commit -m Autocommit, push
//
// Conflicts are always resolved in favor of the remote. A push rejected
// because the remote diverged is either surfaced (RejectSurface) or followed
// by a pull and one more push under the same lock (RejectRetry).
package workspace
